package service

import (
	"errors"
	"fmt"

	"github.com/LeventeLantos/sms-queue/internal/repo"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("sms not found")
	ErrStorage      = errors.New("storage failure")
)

func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repo.ErrInvalidLimit), errors.Is(err, repo.ErrInvalidRecord):
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	default:
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}
