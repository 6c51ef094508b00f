// Package seeds populates a freshly migrated development database with a
// demo App, Entitlement, and Product so the HTTP surface can be
// exercised immediately without first driving the admin bootstrap routes
// by hand.
package seeds

import (
	"log/slog"

	"opencat/pkg/models"

	"gorm.io/gorm"
)

const (
	demoBundleID       = "com.opencat.demo"
	demoEntitlementPro = "pro"
	demoProductID      = "com.opencat.demo.monthly"
)

// InitializeSeedData seeds a demo App, Entitlement, and Product iff no App
// rows exist yet. It is only ever called in development mode (main.go);
// production deployments bootstrap apps through POST /v1/apps instead.
func InitializeSeedData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.App{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Debug("Seed data skipped, apps already present")
		return nil
	}

	slog.Info("Initializing seed data...")

	app := &models.App{Name: "Demo App", Platform: models.PlatformIOS, BundleID: demoBundleID}
	if err := db.Create(app).Error; err != nil {
		return err
	}

	entitlement := &models.Entitlement{AppID: app.ID, Name: demoEntitlementPro}
	if err := db.Create(entitlement).Error; err != nil {
		return err
	}

	product := &models.Product{AppID: app.ID, StoreProductID: demoProductID, ProductType: models.ProductKindSubscription}
	if err := db.Create(product).Error; err != nil {
		return err
	}

	link := &models.ProductEntitlement{ProductID: product.ID, EntitlementID: entitlement.ID}
	if err := db.Create(link).Error; err != nil {
		return err
	}

	slog.Info("Seed data initialization completed", "app_id", app.ID, "bundle_id", demoBundleID)
	return nil
}
