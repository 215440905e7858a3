package store

import (
	"github.com/google/uuid"

	"github.com/brigadeops/core/internal/apperr"
	"github.com/brigadeops/core/internal/models"
)

// GetRestaurant fetches a restaurant by id.
func (s *Store) GetRestaurant(id uuid.UUID) (models.Restaurant, error) {
	var r models.Restaurant
	if err := s.db.Where("id = ?", id).First(&r).Error; err != nil {
		return models.Restaurant{}, notFoundOr(err, "restaurant not found")
	}
	return r, nil
}

// GetTable fetches a table by id.
func (s *Store) GetTable(id uuid.UUID) (models.Table, error) {
	var t models.Table
	if err := s.db.Where("id = ?", id).First(&t).Error; err != nil {
		return models.Table{}, notFoundOr(err, "table not found")
	}
	return t, nil
}

// ListTables returns every table for a restaurant.
func (s *Store) ListTables(restaurantID uuid.UUID) ([]models.Table, error) {
	var tables []models.Table
	if err := s.db.Where("restaurant_id = ?", restaurantID).Find(&tables).Error; err != nil {
		return nil, apperr.Wrap(component, apperr.KindPermanent, "list tables", err)
	}
	return tables, nil
}
