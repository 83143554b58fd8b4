package services_test

import (
	"context"
	"testing"

	"k21/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-123")
	ctx = services.WithStage(ctx, "processor")
	ctx = services.WithFrameIndex(ctx, 7)

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "processor" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.FrameIndexFromContext(ctx); !ok || idx != 7 {
		t.Fatalf("unexpected frame index: %v %v", idx, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.FrameIndexFromContext(ctx); ok {
		t.Fatal("expected no frame index")
	}
}
