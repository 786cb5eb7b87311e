package postgres

import (
	"errors"
	"fmt"
	"testing"

	"masjid-collection/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestCleanText(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  12B ", "12B"},
		{"Mohammed  Ali", "Mohammed Ali"},
		{"a\tb\n\nc", "a b c"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"unique", &pgconn.PgError{Code: "23505"}, domain.ErrConflict},
		{"foreign key", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23503"}), domain.ErrInvalidInput},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapErr("op", tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	other := errors.New("boom")
	if got := mapErr("op", other); !errors.Is(got, other) || errors.Is(got, domain.ErrNotFound) {
		t.Fatalf("unexpected mapping %v", got)
	}
}

func TestScopeFilter(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name     string
		scope    domain.StatsScope
		wantArgs int
		wantErr  bool
	}{
		{"mosque", domain.StatsScope{Level: domain.LevelMosque, Key: id.String()}, 1, false},
		{"mosque bad key", domain.StatsScope{Level: domain.LevelMosque, Key: "x"}, 0, true},
		{"city", domain.StatsScope{Level: domain.LevelCity, Key: "Hyderabad"}, 1, false},
		{"state", domain.StatsScope{Level: domain.LevelState, Key: "Kerala"}, 1, false},
		{"national", domain.StatsScope{Level: domain.LevelNational}, 0, false},
		{"unknown", domain.StatsScope{Level: "planet"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args, err := scopeFilter(tt.scope)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Fatalf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil || where == "" || len(args) != tt.wantArgs {
				t.Fatalf("got %q %v %v", where, args, err)
			}
		})
	}
}
