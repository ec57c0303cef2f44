package domain

// Marketplace identifies an order source connected to a dashboard organization
type Marketplace string

const (
	// MarketplaceERP is the ERP platform. It is the only marketplace
	// connected through the OAuth authorization-code flow; the others use
	// static API credentials consumed by the order adapter.
	MarketplaceERP Marketplace = "erp"

	MarketplaceShopee       Marketplace = "shopee"
	MarketplaceMercadoLivre Marketplace = "mercadolivre"
)

// CoreMarketplaces returns the marketplaces an organization can connect
func CoreMarketplaces() []Marketplace {
	return []Marketplace{
		MarketplaceERP,
		MarketplaceShopee,
		MarketplaceMercadoLivre,
	}
}

// Valid reports whether the marketplace type is registered
func (m Marketplace) Valid() bool {
	switch m {
	case MarketplaceERP, MarketplaceShopee, MarketplaceMercadoLivre:
		return true
	}
	return false
}

// SupportsOAuth reports whether the marketplace connects via the OAuth
// authorization-code flow
func (m Marketplace) SupportsOAuth() bool {
	return m == MarketplaceERP
}

// DisplayName returns a human-readable name for a marketplace
func (m Marketplace) DisplayName() string {
	switch m {
	case MarketplaceERP:
		return "ERP"
	case MarketplaceShopee:
		return "Shopee"
	case MarketplaceMercadoLivre:
		return "Mercado Livre"
	default:
		return string(m)
	}
}
