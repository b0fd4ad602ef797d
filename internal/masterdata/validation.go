package masterdata

import (
	"fmt"
	"strings"

	"github.com/riskimaulanarahman/Aplikasi-Inventory-sub000/internal/shared"
)

func required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("masterdata: %s is required: %w", field, shared.ErrValidation)
	}
	return nil
}

func validateProduct(p Product) error {
	if err := required("product name", p.Name); err != nil {
		return err
	}
	if err := required("sku", p.SKU); err != nil {
		return err
	}
	if p.MinStock < 0 {
		return fmt.Errorf("masterdata: minimum stock must be >= 0: %w", shared.ErrValidation)
	}
	if p.CentralStock < 0 {
		return fmt.Errorf("masterdata: opening stock must be >= 0: %w", shared.ErrValidation)
	}
	return nil
}

func validateOutlet(o Outlet) error {
	if err := required("outlet code", o.Code); err != nil {
		return err
	}
	return required("outlet name", o.Name)
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}
