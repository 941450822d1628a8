package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/crowdfund-backend/internal/db"
	appErrors "github.com/unclebandit/crowdfund-backend/internal/errors"
	"github.com/unclebandit/crowdfund-backend/internal/model"
)

type CategoryRepositoryInterface interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id int) (*model.Category, error)
	GetByName(ctx context.Context, name string) (*model.Category, error)
	ListAll(ctx context.Context) ([]model.Category, error)
}

type CategoryRepository struct {
	DB *sql.DB
}

func (r *CategoryRepository) Create(ctx context.Context, c *model.Category) error {
	err := r.DB.QueryRowContext(ctx,
		`INSERT INTO categories (name, description, icon) VALUES ($1, $2, $3) RETURNING id`,
		c.Name, c.Description, c.Icon,
	).Scan(&c.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return appErrors.NewValidation("name", fmt.Sprintf("category %q already exists", c.Name))
		}
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id int) (*model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, description, icon FROM categories WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.Icon)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewCategoryNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*model.Category, error) {
	var c model.Category
	err := r.DB.QueryRowContext(ctx, `SELECT id, name, description, icon FROM categories WHERE name=$1`, name).
		Scan(&c.ID, &c.Name, &c.Description, &c.Icon)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewCategoryNameNotFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListAll fetches all categories ordered by name
func (r *CategoryRepository) ListAll(ctx context.Context) ([]model.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, description, icon FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Icon); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

var _ CategoryRepositoryInterface = (*CategoryRepository)(nil)
