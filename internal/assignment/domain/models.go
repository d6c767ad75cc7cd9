// Package domain defines the ownership mapper: it keeps deal ownership and
// profile linkage consistent with the mirrored CRM state.
package domain

import "context"

// LinkResult counts the outcome of an email-based linking pass.
type LinkResult struct {
	Linked    int `json:"linked"`
	Conflicts int `json:"conflicts"`
}

type Service interface {
	// ReassignDeals maps every deal whose external owner id belongs to a
	// linked profile onto that profile. Idempotent.
	ReassignDeals(ctx context.Context) (int64, error)
	// LinkProfilesByEmail matches AE profile emails against mirrored member
	// emails (lower-cased) and links or relinks the member id. Uniqueness
	// violations are counted as conflicts, not failures.
	LinkProfilesByEmail(ctx context.Context) (*LinkResult, error)
}
