package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/noah-isme/coaching-center-api/internal/identifier"
)

const pgUniqueViolation = "23505"

type identifierStore struct {
	db *gorm.DB
}

// NewIdentifierStore returns an identifier.Store backed by the profile tables.
func NewIdentifierStore(db *gorm.DB) identifier.Store {
	return &identifierStore{db: db}
}

func (s *identifierStore) Exists(ctx context.Context, kind identifier.Kind, id string) (bool, error) {
	table, column, err := identifierColumn(kind)
	if err != nil {
		return false, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Table(table).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *identifierStore) CountWidth(ctx context.Context, kind identifier.Kind, width int) (int64, error) {
	table, column, err := identifierColumn(kind)
	if err != nil {
		return 0, err
	}

	var count int64
	err = s.db.WithContext(ctx).Table(table).Where("LENGTH("+column+") = ?", width).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func identifierColumn(kind identifier.Kind) (string, string, error) {
	switch kind {
	case identifier.KindStudent:
		return "student_profiles", "student_id", nil
	case identifier.KindStaff:
		return "staff_profiles", "staff_id", nil
	default:
		return "", "", identifier.ErrUnknownKind
	}
}

// IsUniqueViolation reports whether err came from a unique index.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	message := err.Error()
	return strings.Contains(message, "UNIQUE constraint failed") || strings.Contains(message, "duplicate key value")
}

// UniqueViolationOn reports whether err is a unique violation mentioning column.
func UniqueViolationOn(err error, column string) bool {
	return IsUniqueViolation(err) && strings.Contains(err.Error(), column)
}
