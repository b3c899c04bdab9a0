package api

import "github.com/samcharles93/listener/internal/listener"

type ListenRequest struct {
	Description string `json:"description"`
	TopK        *int   `json:"top_k,omitempty"`
}

type ListenResponse struct {
	ID          string            `json:"id"`
	Object      string            `json:"object"`
	CreatedAt   int64             `json:"created_at"`
	Description string            `json:"description"`
	Tokens      []string          `json:"tokens"`
	Hex         string            `json:"hex"`
	RGB         [3]float64        `json:"rgb"`
	Bucket      int               `json:"bucket"`
	Top         []listener.Bucket `json:"top"`
}

type ScoreRequest struct {
	Description string    `json:"description"`
	HSV         []float64 `json:"hsv"`
}

type ScoreResponse struct {
	ID          string     `json:"id"`
	Object      string     `json:"object"`
	CreatedAt   int64      `json:"created_at"`
	Description string     `json:"description"`
	HSV         [3]float64 `json:"hsv"`
	Hex         string     `json:"hex"`
	Score       float64    `json:"score"`
	Probability float64    `json:"probability"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Trained bool   `json:"trained"`
	Version string `json:"version,omitempty"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}
