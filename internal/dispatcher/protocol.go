package dispatcher

import "github.com/aleister1102/filecompare/internal/models"

// RequestTypeCompare is the only request type a worker acts on.
const RequestTypeCompare = "compare"

// ComparePayload carries the inputs of one comparison.
type ComparePayload struct {
	TextA  string                  `json:"textA"`
	TextB  string                  `json:"textB"`
	Config models.ComparisonConfig `json:"config"`
}

// Request is posted to the worker, tagged with a correlation id.
type Request struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Payload ComparePayload `json:"payload"`
}

// Response answers the Request with the same ID. When OK is false, Error
// holds the failure message and Payload is nil.
type Response struct {
	ID      string                `json:"id"`
	OK      bool                  `json:"ok"`
	Payload *models.CompareOutput `json:"payload,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// CompareFunc runs the normalize, diff and stats pipeline.
type CompareFunc func(textA, textB string, cfg models.ComparisonConfig) (models.CompareOutput, error)
