package models

// Document store collections.
const (
	CollectionAdmins      = "admins"
	CollectionAdminAudit  = "admin_audit"
	CollectionWaqfs       = "waqfs"
	CollectionDonations   = "donations"
	CollectionAllocations = "allocations"
	CollectionCauses      = "causes"
	CollectionCauseImages = "cause_images"
	CollectionCauseCovers = "cause_covers"
	CollectionUploads     = "uploads"
	CollectionUsers       = "users"
)

// HealthCheckKey is the document key written and read by backend health probes.
const HealthCheckKey = "__healthcheck__"
