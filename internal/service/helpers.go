package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/waqf-api/internal/docstore"
)

func normalizePage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

// mapStoreError translates document store rejections into the caller's sentinels.
func mapStoreError(err, denied, invalid error, action string) error {
	switch {
	case errors.Is(err, docstore.ErrPermissionDenied):
		return fmt.Errorf("%w: %w", denied, err)
	case errors.Is(err, docstore.ErrInvalidDocument):
		return fmt.Errorf("%w: %w", invalid, err)
	default:
		return fmt.Errorf("%s: %w", action, err)
	}
}

// maskEmail keeps the first and last character of the local part for logs.
func maskEmail(email string) string {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return "***"
	}
	if len(local) <= 2 {
		return local[:1] + "***@" + domain
	}
	return local[:1] + "***" + local[len(local)-1:] + "@" + domain
}
