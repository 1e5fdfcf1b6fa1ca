package domain

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestDomainErrors_AreStableAndUsableWithErrorsIs(t *testing.T) {
	if ErrTokenStoreNotReady == ErrInvalidAPIKey {
		t.Fatalf("domain errors must be distinct")
	}

	wrappedNotReady := errors.Join(errors.New("context"), ErrTokenStoreNotReady)
	if !errors.Is(wrappedNotReady, ErrTokenStoreNotReady) {
		t.Fatalf("expected errors.Is to match ErrTokenStoreNotReady")
	}

	wrappedInvalid := errors.Join(errors.New("context"), ErrInvalidAPIKey)
	if !errors.Is(wrappedInvalid, ErrInvalidAPIKey) {
		t.Fatalf("expected errors.Is to match ErrInvalidAPIKey")
	}
}

func TestRenderError_WrapsCauseMessage(t *testing.T) {
	err := error(&RenderError{Path: "/x/labelTemplate.html", Err: os.ErrNotExist})

	if got := err.Error(); got != "failed to render template: "+os.ErrNotExist.Error() {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, ErrRender) {
		t.Fatalf("expected errors.Is(err, ErrRender)")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected cause to be reachable through Unwrap")
	}
	if errors.Is(err, ErrRasterize) {
		t.Fatalf("render error must not match ErrRasterize")
	}

	var re *RenderError
	if !errors.As(fmt.Errorf("outer: %w", err), &re) || re.Path != "/x/labelTemplate.html" {
		t.Fatalf("expected errors.As to find RenderError")
	}
}

func TestRasterizationError_CarriesStageAndDiagnostic(t *testing.T) {
	err := error(&RasterizationError{Stage: StageLoad, Err: context.DeadlineExceeded})

	if !strings.Contains(err.Error(), "load") || !strings.Contains(err.Error(), "deadline") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrRasterize) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected sentinel and cause to match")
	}

	empty := &RasterizationError{Stage: StagePrint}
	if empty.Error() != "pdf rasterization failed during print" {
		t.Fatalf("unexpected message %q", empty.Error())
	}
}
