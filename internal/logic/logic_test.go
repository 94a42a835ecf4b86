package logic

import (
	"testing"

	"github.com/greenfund/gfs/internal/database"
	"github.com/greenfund/gfs/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// newTestDB 每个测试一个独立的内存库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: true,
		},
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return db
}

func createTestProduct(t *testing.T, db *gorm.DB, product *model.ProductModel) *model.ProductModel {
	t.Helper()
	if product == nil {
		product = &model.ProductModel{}
	}
	if product.Name == "" {
		product.Name = "有机番茄"
	}
	if product.Price == 0 {
		product.Price = 12.5
	}
	if product.FarmerAddress == "" {
		product.FarmerAddress = "0x1111111111111111111111111111111111111111"
	}
	product.Active = true
	require.NoError(t, db.Create(product).Error)
	return product
}
