package models

// SupplierModel is the local view of a supplier, used for existence checks only.
type SupplierModel struct {
	BaseModel
	Code string `gorm:"type:varchar(50);not null;uniqueIndex:idx_suppliers_code"`
	Name string `gorm:"type:varchar(200);not null"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// UserModel is the local view of a user, used for existence checks only.
type UserModel struct {
	BaseModel
	Username string `gorm:"type:varchar(100);not null;uniqueIndex:idx_users_username"`
	FullName string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// AllModels lists every model of the schema in dependency order.
// Used by tests that build the schema with AutoMigrate.
func AllModels() []any {
	return []any{
		&SupplierModel{},
		&UserModel{},
		&ProductModel{},
		&ReceptionModel{},
		&ReceptionDetailModel{},
		&ReceptionHistoryModel{},
		&ReceptionSequenceModel{},
		&StockMovementModel{},
	}
}
