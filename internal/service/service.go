// Package service contains the business logic of the travel planner.
// Services stamp server-owned fields, run the structural checks, wrap store
// failures and start live subscriptions. No SQL or Firestore code lives
// here; services depend on repo interfaces only.
package service

import (
	"errors"
	"fmt"
	"slices"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cychmps426211/travelplan/internal/domain"
	"github.com/cychmps426211/travelplan/internal/telemetry"
	"github.com/cychmps426211/travelplan/internal/viewmodel"
)

var tracer = telemetry.Tracer("service")

// writeErr wraps a failed store write. Not-found and validation errors keep
// their own meaning; everything else becomes domain.ErrWrite.
func writeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrValidation) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrWrite, err)
}

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func validCoverColor(c string) error {
	if c != "" && !slices.Contains(viewmodel.CoverColors, c) {
		return fmt.Errorf("%w: unknown cover color %q", domain.ErrValidation, c)
	}
	return nil
}
