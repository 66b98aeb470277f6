package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/caldant/contentflow/pkg/contentflow"
)

// LanguageCatalog implements contentflow.LanguageCatalog using PostgreSQL
type LanguageCatalog struct {
	db DBTX
}

// NewLanguageCatalog creates a new PostgreSQL language catalog
func NewLanguageCatalog(db DBTX) *LanguageCatalog {
	return &LanguageCatalog{db: db}
}

func (c *LanguageCatalog) Languages(ctx context.Context) ([]contentflow.Language, error) {
	rows, err := c.db.Query(ctx,
		`SELECT code, name, mandatory FROM language ORDER BY code`)
	if err != nil {
		return nil, handlePostgresError("get languages", err)
	}
	defer rows.Close()

	var languages []contentflow.Language
	for rows.Next() {
		var lang contentflow.Language
		if err := rows.Scan(&lang.Code, &lang.Name, &lang.Mandatory); err != nil {
			return nil, handlePostgresError("scan language", err)
		}
		languages = append(languages, lang)
	}
	if err = rows.Err(); err != nil {
		return nil, handlePostgresError("iterate language rows", err)
	}
	return languages, nil
}

// TypeCatalog implements contentflow.TypeCatalog using PostgreSQL. The
// allowed child types and the property definitions are jsonb documents.
type TypeCatalog struct {
	db DBTX
}

// NewTypeCatalog creates a new PostgreSQL content type catalog
func NewTypeCatalog(db DBTX) *TypeCatalog {
	return &TypeCatalog{db: db}
}

func (c *TypeCatalog) ContentTypeByAlias(ctx context.Context, alias string) (*contentflow.ContentType, error) {
	query := `
		SELECT alias, name, varies_by_culture, allowed_at_root,
		       allowed_child_types, properties
		FROM content_type WHERE alias = $1`

	var typ contentflow.ContentType
	var childTypes, properties []byte
	err := c.db.QueryRow(ctx, query, alias).Scan(
		&typ.Alias, &typ.Name, &typ.VariesByCulture, &typ.AllowedAtRoot,
		&childTypes, &properties)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentflow.ErrContentTypeNotFound
		}
		return nil, handlePostgresError("get content type", err)
	}

	if len(childTypes) > 0 {
		if err := json.Unmarshal(childTypes, &typ.AllowedChildTypes); err != nil {
			return nil, fmt.Errorf("decode allowed child types for %q: %w", alias, err)
		}
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &typ.Properties); err != nil {
			return nil, fmt.Errorf("decode properties for %q: %w", alias, err)
		}
	}
	return &typ, nil
}
