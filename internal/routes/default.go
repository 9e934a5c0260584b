package routes

import "imovan/internal/identity"

// Route path constants. All application routes are defined here to keep
// handlers, the guard, and redirects consistent.
const (
	PathHome     = "/"
	PathLogin    = "/login"
	PathRegister = "/register"
	PathPlans    = "/plans"

	PathProfile = "/profile"

	PathFleetDashboard = "/fleet-dashboard"
	PathFleetVehicles  = "/fleet/vehicles"
	PathFleetServices  = "/fleet/services"

	PathProviderDashboard = "/provider/dashboard"
	PathProviderServices  = "/provider/services"
	PathProviderOrders    = "/provider/orders"

	PathIntegratorDashboard = "/integrator/dashboard"
	PathIntegratorCompanies = "/integrator/companies"
	PathIntegratorProviders = "/integrator/providers"
)

// Default is the IMOVAN route table. Grouped for display; flattened and
// checked for duplicate paths at package initialization.
func Default() *Registry {
	return MustNewRegistry(
		Group{
			Name:  "public",
			Title: "Public",
			Routes: []Descriptor{
				{Path: PathHome, Title: "Home"},
				{Path: PathLogin, Title: "Login"},
				{Path: PathRegister, Title: "Create Account"},
				{Path: PathPlans, Title: "Plans"},
			},
		},
		Group{
			Name:  "account",
			Title: "My Account",
			Routes: []Descriptor{
				{Path: PathProfile, Title: "My Profile", RequiresAuth: true, UserType: identity.UserTypeAny},
			},
		},
		Group{
			Name:  "fleet",
			Title: "Fleet",
			Routes: []Descriptor{
				{Path: PathFleetDashboard, Title: "Fleet Dashboard", RequiresAuth: true, UserType: identity.UserTypeClient},
				{Path: PathFleetVehicles, Title: "Vehicles", RequiresAuth: true, UserType: identity.UserTypeClient},
				{Path: PathFleetServices, Title: "Contracted Services", RequiresAuth: true, UserType: identity.UserTypeClient},
			},
		},
		Group{
			Name:  "provider",
			Title: "Service Provider",
			Routes: []Descriptor{
				{Path: PathProviderDashboard, Title: "Provider Dashboard", RequiresAuth: true, UserType: identity.UserTypeProvider},
				{Path: PathProviderServices, Title: "Offered Services", RequiresAuth: true, UserType: identity.UserTypeProvider},
				{Path: PathProviderOrders, Title: "Service Orders", RequiresAuth: true, UserType: identity.UserTypeProvider},
			},
		},
		Group{
			Name:  "integrator",
			Title: "Integrator",
			Routes: []Descriptor{
				{Path: PathIntegratorDashboard, Title: "Integrator Dashboard", RequiresAuth: true, UserType: identity.UserTypeIntegrator},
				{Path: PathIntegratorCompanies, Title: "Companies", RequiresAuth: true, UserType: identity.UserTypeIntegrator},
				{Path: PathIntegratorProviders, Title: "Providers", RequiresAuth: true, UserType: identity.UserTypeIntegrator},
			},
		},
	)
}
