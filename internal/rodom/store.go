package rodom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/domclick/pending"
)

// SessionStore keeps the pending flag in the tab's sessionStorage, so it
// lives exactly as long as the browser tab.
type SessionStore struct {
	Page *rod.Page
	Key  string
}

func (s SessionStore) Set(ctx context.Context) error {
	if _, err := s.Page.Context(ctx).Eval(`(k, v) => sessionStorage.setItem(k, v)`, s.Key, pending.Sentinel); err != nil {
		return fmt.Errorf("rodom: session set: %w", err)
	}
	return nil
}

func (s SessionStore) IsSet(ctx context.Context) (bool, error) {
	res, err := s.Page.Context(ctx).Eval(`(k) => sessionStorage.getItem(k) || ""`, s.Key)
	if err != nil {
		return false, fmt.Errorf("rodom: session get: %w", err)
	}
	return res.Value.Str() == pending.Sentinel, nil
}

func (s SessionStore) Clear(ctx context.Context) error {
	if _, err := s.Page.Context(ctx).Eval(`(k) => sessionStorage.removeItem(k)`, s.Key); err != nil {
		return fmt.Errorf("rodom: session clear: %w", err)
	}
	return nil
}
