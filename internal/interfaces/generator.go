package interfaces

import (
	"context"

	"katari/internal/model"
)

// Generator turns captured report artifacts into a long-form description.
// Implementations choose the prompt variant from the page count and submit
// all pages of a report in a single request.
type Generator interface {
	Describe(ctx context.Context, req *model.DescribeRequest) (string, error)
}
