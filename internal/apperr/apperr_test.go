package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/apperr"
)

func TestKindFor(t *testing.T) {
	cases := []struct {
		code apperr.Code
		want apperr.Kind
	}{
		{apperr.CodeJobNotFound, apperr.KindNotFound},
		{apperr.CodeNotOwner, apperr.KindForbidden},
		{apperr.CodeRoleViolation, apperr.KindForbidden},
		{apperr.CodeDuplicateApplication, apperr.KindConflict},
		{apperr.CodeSchedulingConflict, apperr.KindConflict},
		{apperr.CodeInvalidTransition, apperr.KindConflict},
		{apperr.CodeSelfReview, apperr.KindValidation},
		{apperr.Code("something_else"), apperr.KindInternal},
	}
	for _, c := range cases {
		t.Run(string(c.code), func(t *testing.T) {
			if got := apperr.KindFor(c.code); got != c.want {
				t.Fatalf("KindFor(%s): want %s got %s", c.code, c.want, got)
			}
		})
	}
}

func TestIsThroughWrapping(t *testing.T) {
	base := apperr.New(apperr.CodeDuplicateReview, "already reviewed")
	wrapped := fmt.Errorf("upsert review: %w", base)

	if !apperr.Is(wrapped, apperr.CodeDuplicateReview) {
		t.Fatalf("expected wrapped error to carry code")
	}
	if apperr.Is(wrapped, apperr.CodeSelfReview) {
		t.Fatalf("unexpected code match")
	}
	if got := apperr.KindOf(wrapped); got != apperr.KindConflict {
		t.Fatalf("expected conflict kind, got %s", got)
	}
	if got := apperr.KindOf(errors.New("plain")); got != apperr.KindInternal {
		t.Fatalf("expected internal kind for plain error, got %s", got)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := apperr.Wrap(apperr.CodeInternal, "store application", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find the cause")
	}
	if err.Error() != "internal: store application: disk full" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestValidationFields(t *testing.T) {
	err := apperr.Validation("invalid feedback", map[string]string{"rating": "must be between 1 and 5"})
	if err.Kind != apperr.KindValidation || err.Code != apperr.CodeInvalidInput {
		t.Fatalf("unexpected kind/code: %s/%s", err.Kind, err.Code)
	}
	if err.Fields["rating"] == "" {
		t.Fatalf("expected rating field message")
	}
}
