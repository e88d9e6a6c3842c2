package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConflict indica una violación de unicidad (SQLSTATE 23505).
var ErrConflict = errors.New("repository: unique constraint conflict")

const uniqueViolation = "23505"

// mapError traduce errores de Postgres a errores del paquete.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.TrimSpace(pgErr.Code) == uniqueViolation {
		return errors.Join(ErrConflict, err)
	}
	return err
}
