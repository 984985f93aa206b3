package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
)

// Conn is the subset of sqlx shared by *sqlx.DB and *sqlx.Tx.
type Conn interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

var _ Conn = &sqlx.DB{}
var _ Conn = &sqlx.Tx{}

// Provider runs a function inside a single database transaction.
type Provider interface {
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

type providerImpl struct {
	db *sqlx.DB
}

func NewProvider(db *sqlx.DB) Provider {
	return &providerImpl{db: db}
}

// Transact commits when fn returns nil and rolls back otherwise. Repository
// calls made with the ctx passed to fn join the transaction.
func (p *providerImpl) Transact(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewPersistence("begin transaction", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		} else if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = fn(context.WithValue(ctx, ctxTxKey, ctxTxValue{tx: tx}))
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return appErrors.NewPersistence("commit transaction", err)
	}
	return nil
}

type ctxTxKeyType struct{}

var ctxTxKey = ctxTxKeyType{}

type ctxTxValue struct {
	tx *sqlx.Tx
}

// conn returns the transaction stored in ctx, or db.
func conn(ctx context.Context, db *sqlx.DB) Conn {
	if v, ok := ctx.Value(ctxTxKey).(ctxTxValue); ok {
		return v.tx
	}
	return db
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var errNoRows = sql.ErrNoRows

// wrapErr maps driver errors onto the application error taxonomy.
func wrapErr(op, entity, id string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.NewNotFound(entity, id)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23502", "23503", "23505", "23514", "22P02":
			return appErrors.NewValidation(pqErr.Column, pqErr.Message)
		}
	}
	return appErrors.NewPersistence(op, err)
}
