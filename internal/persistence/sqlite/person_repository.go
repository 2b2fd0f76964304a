package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/example/roombooking/internal/persistence"
)

// PersonRepository implements persistence.PersonRepository using SQLite
type PersonRepository struct {
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewPersonRepository creates a new SQLite person repository
func NewPersonRepository(pool *ConnectionPool) *PersonRepository {
	return &PersonRepository{
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreatePerson inserts a person. A second person with the same email, in any
// case, yields persistence.ErrDuplicate.
func (r *PersonRepository) CreatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" || strings.TrimSpace(person.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	_, err := r.helper.Exec(ctx,
		`INSERT INTO people (id, name, email, created_at) VALUES (?, ?, ?, ?)`,
		person.ID,
		person.Name,
		normalizeEmail(person.Email),
		formatTime(person.CreatedAt),
	)
	return r.mapper.MapError(err)
}

// GetPerson retrieves a person by ID
func (r *PersonRepository) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	return r.getBy(ctx, "id", id)
}

// GetPersonByEmail retrieves a person by email, ignoring case
func (r *PersonRepository) GetPersonByEmail(ctx context.Context, email string) (persistence.Person, error) {
	return r.getBy(ctx, "email", normalizeEmail(email))
}

func (r *PersonRepository) getBy(ctx context.Context, column, value string) (persistence.Person, error) {
	if value == "" {
		return persistence.Person{}, persistence.ErrNotFound
	}

	var (
		person    persistence.Person
		createdAt string
	)
	err := r.helper.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM people WHERE `+column+` = ?`, value,
	).Scan(&person.ID, &person.Name, &person.Email, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Person{}, persistence.ErrNotFound
		}
		return persistence.Person{}, r.mapper.MapError(err)
	}

	if person.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Person{}, err
	}
	return person, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
