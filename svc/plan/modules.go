package plan

import "slices"

// Module is a top-level product area a plan can unlock.
type Module string

const (
	ModuleProperties Module = "properties"
	ModuleRooms      Module = "rooms"
	ModuleTenants    Module = "tenants"
	ModuleRent       Module = "rent"
	ModuleExpenses   Module = "expenses"
	ModuleComplaints Module = "complaints"
	ModuleStaff      Module = "staff"
	ModuleFood       Module = "food"
	ModuleReports    Module = "reports"
	ModuleNotices    Module = "notices"
)

// Submodule is a screen or resource inside a module.
type Submodule string

const (
	SubPropertyProfile Submodule = "property_profile"
	SubBranches        Submodule = "branches"
	SubRoomSetup       Submodule = "room_setup"
	SubBedAllocation   Submodule = "bed_allocation"
	SubTenantProfiles  Submodule = "tenant_profiles"
	SubBookings        Submodule = "bookings"
	SubCheckInOut      Submodule = "check_in_out"
	SubKYC             Submodule = "kyc"
	SubRentCollection  Submodule = "rent_collection"
	SubInvoices        Submodule = "invoices"
	SubDeposits        Submodule = "deposits"
	SubExpenseLedger   Submodule = "expense_ledger"
	SubVendors         Submodule = "vendors"
	SubTickets         Submodule = "tickets"
	SubStaffDirectory  Submodule = "staff_directory"
	SubAttendance      Submodule = "attendance"
	SubPayroll         Submodule = "payroll"
	SubMenu            Submodule = "menu"
	SubMealAttendance  Submodule = "meal_attendance"
	SubOccupancy       Submodule = "occupancy"
	SubFinancials      Submodule = "financials"
	SubExports         Submodule = "exports"
	SubAnnouncements   Submodule = "announcements"
)

// Action is one CRUD permission bit.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Feature is a plan-level capability flag outside the module grid.
type Feature string

const (
	FeatureOnlinePayments  Feature = "online_payments"
	FeatureWhatsAppAlerts  Feature = "whatsapp_alerts"
	FeatureSMSAlerts       Feature = "sms_alerts"
	FeatureTenantApp       Feature = "tenant_app"
	FeatureCustomBranding  Feature = "custom_branding"
	FeaturePrioritySupport Feature = "priority_support"
	FeatureAPIAccess       Feature = "api_access"
	FeatureDataExport      Feature = "data_export"
)

var registry = map[Module][]Submodule{
	ModuleProperties: {SubPropertyProfile, SubBranches},
	ModuleRooms:      {SubRoomSetup, SubBedAllocation},
	ModuleTenants:    {SubTenantProfiles, SubBookings, SubCheckInOut, SubKYC},
	ModuleRent:       {SubRentCollection, SubInvoices, SubDeposits},
	ModuleExpenses:   {SubExpenseLedger, SubVendors},
	ModuleComplaints: {SubTickets},
	ModuleStaff:      {SubStaffDirectory, SubAttendance, SubPayroll},
	ModuleFood:       {SubMenu, SubMealAttendance},
	ModuleReports:    {SubOccupancy, SubFinancials, SubExports},
	ModuleNotices:    {SubAnnouncements},
}

var features = []Feature{
	FeatureOnlinePayments,
	FeatureWhatsAppAlerts,
	FeatureSMSAlerts,
	FeatureTenantApp,
	FeatureCustomBranding,
	FeaturePrioritySupport,
	FeatureAPIAccess,
	FeatureDataExport,
}

// Modules lists every known module in a stable order.
func Modules() []Module {
	out := make([]Module, 0, len(registry))
	for m := range registry {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Submodules lists the submodules of m. Unknown modules have none.
func Submodules(m Module) []Submodule {
	return slices.Clone(registry[m])
}

func (m Module) Valid() bool {
	_, ok := registry[m]
	return ok
}

// Owns reports whether s belongs to m.
func (m Module) Owns(s Submodule) bool {
	return slices.Contains(registry[m], s)
}

func (f Feature) Valid() bool {
	return slices.Contains(features, f)
}

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// CRUD is the permission set for one submodule.
type CRUD struct {
	Create bool `json:"create" bson:"create" yaml:"create"`
	Read   bool `json:"read" bson:"read" yaml:"read"`
	Update bool `json:"update" bson:"update" yaml:"update"`
	Delete bool `json:"delete" bson:"delete" yaml:"delete"`
}

// FullAccess grants every action.
func FullAccess() CRUD { return CRUD{Create: true, Read: true, Update: true, Delete: true} }

// ReadOnly grants only Read.
func ReadOnly() CRUD { return CRUD{Read: true} }

// Allows reports whether the set includes a.
func (c CRUD) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return c.Create
	case ActionRead:
		return c.Read
	case ActionUpdate:
		return c.Update
	case ActionDelete:
		return c.Delete
	}
	return false
}

// ModuleGrant is what a plan unlocks inside one module.
type ModuleGrant struct {
	Enabled bool `json:"enabled" bson:"enabled" yaml:"enabled"`

	// UsageLimit caps the module's primary resource. Nil means no module-level cap.
	UsageLimit  *int               `json:"usage_limit,omitempty" bson:"usage_limit,omitempty" yaml:"usage_limit,omitempty"`
	Permissions map[Submodule]CRUD `json:"permissions,omitempty" bson:"permissions,omitempty" yaml:"permissions,omitempty"`
}

// Grants maps modules to what the plan unlocks.
type Grants map[Module]ModuleGrant

// Allows reports whether module is enabled and grants action on submodule.
// An enabled module with no explicit entry for submodule grants read only.
func (g Grants) Allows(m Module, s Submodule, a Action) bool {
	grant, ok := g[m]
	if !ok || !grant.Enabled || !m.Owns(s) {
		return false
	}
	perms, ok := grant.Permissions[s]
	if !ok {
		return a == ActionRead
	}
	return perms.Allows(a)
}

// Enabled reports whether m is switched on.
func (g Grants) Enabled(m Module) bool {
	grant, ok := g[m]
	return ok && grant.Enabled
}

// Limit returns the usage limit of m if one is set.
func (g Grants) Limit(m Module) (int, bool) {
	grant, ok := g[m]
	if !ok || !grant.Enabled || grant.UsageLimit == nil {
		return 0, false
	}
	return *grant.UsageLimit, true
}

// Clone returns a deep copy.
func (g Grants) Clone() Grants {
	if g == nil {
		return nil
	}
	out := make(Grants, len(g))
	for m, grant := range g {
		c := ModuleGrant{Enabled: grant.Enabled}
		if grant.UsageLimit != nil {
			v := *grant.UsageLimit
			c.UsageLimit = &v
		}
		if grant.Permissions != nil {
			c.Permissions = make(map[Submodule]CRUD, len(grant.Permissions))
			for s, p := range grant.Permissions {
				c.Permissions[s] = p
			}
		}
		out[m] = c
	}
	return out
}
