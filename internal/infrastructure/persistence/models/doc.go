// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and AggregateModel
//   - reception.go: receptions, reception_details, reception_history, reception_sequences
//   - product.go: products and stock_movements
//   - reference.go: suppliers and users
package models
