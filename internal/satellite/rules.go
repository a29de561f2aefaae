package satellite

import (
	"context"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/noah-isme/waqf-api/internal/docstore"
	"github.com/noah-isme/waqf-api/internal/models"
	"github.com/noah-isme/waqf-api/internal/roles"
)

const (
	maxEmailLength      = 254
	minCauseNameLength  = 3
	minCauseDescription = 20
	maxCauseDescription = 5000
	allocationTolerance = 0.01
	minGrowthRate       = -100
	maxGrowthRate       = 1000
	financialTolerance  = 0.01
)

// Rules returns the assertions the backend enforces on every collection.
func Rules() *docstore.Rules {
	return docstore.NewRules().
		OnSet(models.CollectionAdmins, assertAdminWrite).
		OnDelete(models.CollectionAdmins, denyHardDelete("admins are removed by soft delete")).
		OnSet(models.CollectionAdminAudit, assertAuditAppend).
		OnDelete(models.CollectionAdminAudit, denyHardDelete("audit entries are append-only")).
		OnSet(models.CollectionCauses, assertCauseWrite).
		OnDelete(models.CollectionCauses, assertCauseDeletion).
		OnSet(models.CollectionWaqfs, assertWaqfWrite).
		OnDelete(models.CollectionWaqfs, assertWaqfDeletion).
		OnSet(models.CollectionDonations, assertDonation).
		OnSet(models.CollectionAllocations, assertAllocation)
}

func denyHardDelete(reason string) docstore.Rule {
	return func(ctx context.Context, m docstore.Mutation) error {
		return docstore.Deny(reason)
	}
}

func callerAdmin(ctx context.Context, m docstore.Mutation) (models.AdminUser, bool, error) {
	if m.Caller == "" {
		return models.AdminUser{}, false, nil
	}
	doc, found, err := m.Reader.Get(ctx, models.CollectionAdmins, m.Caller)
	if err != nil || !found {
		return models.AdminUser{}, false, err
	}
	var admin models.AdminUser
	if err := doc.Decode(&admin); err != nil {
		return models.AdminUser{}, false, err
	}
	return admin, admin.Active(), nil
}

func activeAdmins(ctx context.Context, reader docstore.Reader) ([]models.AdminUser, error) {
	result, err := reader.List(ctx, models.CollectionAdmins, docstore.ListOptions{})
	if err != nil {
		return nil, err
	}
	admins := make([]models.AdminUser, 0, len(result.Items))
	for _, item := range result.Items {
		var admin models.AdminUser
		if err := item.Decode(&admin); err != nil {
			return nil, err
		}
		if admin.Active() {
			admins = append(admins, admin)
		}
	}
	return admins, nil
}

func assertAdminWrite(ctx context.Context, m docstore.Mutation) error {
	if m.Caller == "" {
		return docstore.Deny("anonymous callers cannot modify admins")
	}

	var proposed models.AdminUser
	if err := m.Proposed.Decode(&proposed); err != nil {
		return docstore.Reject("malformed admin record")
	}
	if proposed.UserID != m.Key {
		return docstore.Reject("user id must match the document key")
	}
	if err := validateEmail(proposed.Email); err != nil {
		return err
	}
	if err := roles.ValidatePermissions(proposed.Role, proposed.Permissions); err != nil {
		return docstore.Reject("%v", err)
	}

	admins, err := activeAdmins(ctx, m.Reader)
	if err != nil {
		return err
	}

	if proposed.Active() {
		for _, other := range admins {
			if other.UserID != proposed.UserID && strings.EqualFold(other.Email, proposed.Email) {
				return docstore.Reject("email %s is already used by another admin", proposed.Email)
			}
		}
	}

	caller, isAdmin, err := callerAdmin(ctx, m)
	if err != nil {
		return err
	}
	callerIsSuper := isAdmin && caller.Has(roles.PermissionSuper)

	if m.IsCreate() {
		if len(admins) == 0 {
			return nil
		}
		if !callerIsSuper {
			return docstore.Deny("only super admins can add admins")
		}
		return nil
	}

	var current models.AdminUser
	if err := m.Current.Decode(&current); err != nil {
		return docstore.Reject("malformed stored admin record")
	}

	// A removed admin may reclaim their own record while no active admin exists.
	if len(admins) == 0 && m.Caller == m.Key {
		return nil
	}

	privileged := current.Role != proposed.Role ||
		!roles.Equal(current.Permissions, proposed.Permissions) ||
		current.Deleted != proposed.Deleted
	if !callerIsSuper && (privileged || m.Caller != m.Key) {
		return docstore.Deny("only super admins can modify other admins, roles or permissions")
	}

	losingSuper := current.Active() && current.Role == roles.SuperAdmin &&
		(!proposed.Active() || proposed.Role != roles.SuperAdmin)
	if losingSuper {
		remaining := 0
		for _, other := range admins {
			if other.UserID != current.UserID && other.Role == roles.SuperAdmin {
				remaining++
			}
		}
		if remaining == 0 {
			return docstore.Reject("at least one super admin must remain")
		}
	}

	return nil
}

func assertAuditAppend(ctx context.Context, m docstore.Mutation) error {
	if m.Key == models.HealthCheckKey {
		return nil
	}
	if m.Current != nil {
		return docstore.Deny("audit entries are append-only")
	}

	var entry models.AuditEntry
	if err := m.Proposed.Decode(&entry); err != nil {
		return docstore.Reject("malformed audit entry")
	}
	if !entry.Action.Valid() {
		return docstore.Reject("unknown audit action %q", entry.Action)
	}
	if strings.TrimSpace(entry.PerformedBy) == "" {
		return docstore.Reject("audit entries require an actor")
	}
	return nil
}

func assertCauseWrite(ctx context.Context, m docstore.Mutation) error {
	var proposed models.Cause
	if err := m.Proposed.Decode(&proposed); err != nil {
		return docstore.Reject("malformed cause")
	}

	if m.Current != nil {
		var current models.Cause
		if err := m.Current.Decode(&current); err != nil {
			return docstore.Reject("malformed stored cause")
		}
		if onlyFollowersChanged(current, proposed) {
			if m.Caller == "" {
				return docstore.Deny("sign in to follow causes")
			}
			return nil
		}
	}

	caller, isAdmin, err := callerAdmin(ctx, m)
	if err != nil {
		return err
	}
	if !isAdmin || !caller.Has(roles.PermissionContent) {
		return docstore.Deny("only content admins can manage causes")
	}

	if utf8.RuneCountInString(strings.TrimSpace(proposed.Name)) < minCauseNameLength {
		return docstore.Reject("cause name must be at least %d characters", minCauseNameLength)
	}
	descriptionLength := utf8.RuneCountInString(strings.TrimSpace(proposed.Description))
	if descriptionLength < minCauseDescription || descriptionLength > maxCauseDescription {
		return docstore.Reject("cause description must be between %d and %d characters", minCauseDescription, maxCauseDescription)
	}
	if !models.IsCauseCategory(proposed.Category) {
		return docstore.Reject("unknown cause category %q", proposed.Category)
	}
	if proposed.SortOrder < 0 {
		return docstore.Reject("sort order must not be negative")
	}
	if proposed.FundsRaised < 0 || proposed.Followers < 0 {
		return docstore.Reject("cause counters must not be negative")
	}
	if !proposed.Status.Valid() {
		return docstore.Reject("unknown cause status %q", proposed.Status)
	}
	if proposed.Status != models.CauseStatusApproved && proposed.IsActive {
		return docstore.Reject("only approved causes can be active")
	}
	if proposed.Status == models.CauseStatusApproved && (proposed.ApprovedBy == "" || proposed.ApprovedAt == nil) {
		return docstore.Reject("approved causes require approval metadata")
	}
	return nil
}

func assertCauseDeletion(ctx context.Context, m docstore.Mutation) error {
	caller, isAdmin, err := callerAdmin(ctx, m)
	if err != nil {
		return err
	}
	if !isAdmin || !caller.Has(roles.PermissionContent) {
		return docstore.Deny("only content admins can delete causes")
	}

	var current models.Cause
	if err := m.Current.Decode(&current); err != nil {
		return docstore.Reject("malformed stored cause")
	}
	if current.IsActive {
		return docstore.Reject("active causes cannot be deleted")
	}
	if current.FundsRaised > 0 {
		return docstore.Reject("causes that raised funds cannot be deleted")
	}
	return nil
}

func assertWaqfWrite(ctx context.Context, m docstore.Mutation) error {
	if m.Caller == "" {
		return docstore.Deny("anonymous callers cannot modify waqfs")
	}

	var proposed models.WaqfProfile
	if err := m.Proposed.Decode(&proposed); err != nil {
		return docstore.Reject("malformed waqf")
	}

	owner := proposed.CreatedBy
	if m.Current != nil {
		var current models.WaqfProfile
		if err := m.Current.Decode(&current); err != nil {
			return docstore.Reject("malformed stored waqf")
		}
		owner = current.CreatedBy
		if current.Status == models.WaqfStatusArchived {
			return docstore.Reject("archived waqfs are read-only")
		}
	}
	if m.Caller != owner {
		if _, isAdmin, err := callerAdmin(ctx, m); err != nil {
			return err
		} else if !isAdmin {
			return docstore.Deny("only the founder or an admin can modify this waqf")
		}
	}

	if strings.TrimSpace(proposed.Name) == "" {
		return docstore.Reject("waqf name is required")
	}
	if strings.TrimSpace(proposed.Donor.Name) == "" {
		return docstore.Reject("donor name is required")
	}
	if err := validateEmail(proposed.Donor.Email); err != nil {
		return err
	}
	if err := validateAllocationPercentages(proposed.CauseAllocation); err != nil {
		return err
	}
	return validateFinancials(proposed.Financial)
}

func assertWaqfDeletion(ctx context.Context, m docstore.Mutation) error {
	var current models.WaqfProfile
	if err := m.Current.Decode(&current); err != nil {
		return docstore.Reject("malformed stored waqf")
	}
	if current.Status == models.WaqfStatusActive {
		return docstore.Reject("active waqfs cannot be deleted")
	}
	if _, isAdmin, err := callerAdmin(ctx, m); err != nil {
		return err
	} else if !isAdmin {
		return docstore.Deny("only admins can delete waqfs")
	}
	return nil
}

func assertDonation(ctx context.Context, m docstore.Mutation) error {
	if m.Current != nil {
		return docstore.Deny("donations are immutable")
	}
	var donation models.Donation
	if err := m.Proposed.Decode(&donation); err != nil {
		return docstore.Reject("malformed donation")
	}
	if donation.WaqfID == "" {
		return docstore.Reject("donation must reference a waqf")
	}
	if donation.Amount <= 0 || math.IsInf(donation.Amount, 0) || math.IsNaN(donation.Amount) {
		return docstore.Reject("donation amount must be positive")
	}
	return nil
}

func assertAllocation(ctx context.Context, m docstore.Mutation) error {
	if m.Current != nil {
		return docstore.Deny("allocations are immutable")
	}
	var group models.AllocationGroup
	if err := m.Proposed.Decode(&group); err != nil {
		return docstore.Reject("malformed allocation")
	}
	if len(group.Allocations) == 0 {
		return docstore.Reject("allocation requires at least one cause")
	}
	var total float64
	for _, allocation := range group.Allocations {
		if allocation.CauseID == "" || allocation.Amount <= 0 {
			return docstore.Reject("each allocation needs a cause and a positive amount")
		}
		total += allocation.Amount
	}
	if math.Abs(total-group.TotalAmount) > allocationTolerance {
		return docstore.Reject("allocation total does not match its lines")
	}
	return nil
}

func validateEmail(email string) error {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return docstore.Reject("a valid email is required")
	}
	if len(trimmed) > maxEmailLength {
		return docstore.Reject("email must not exceed %d characters", maxEmailLength)
	}
	return nil
}

func validateAllocationPercentages(allocation map[string]float64) error {
	if len(allocation) == 0 {
		return nil
	}
	var total float64
	for cause, percent := range allocation {
		if percent < 0 || percent > 100 {
			return docstore.Reject("allocation for %s must be between 0 and 100", cause)
		}
		total += percent
	}
	if math.Abs(total-100) > allocationTolerance {
		return docstore.Reject("cause allocation must sum to 100, got %.2f", total)
	}
	return nil
}

func validateFinancials(f models.FinancialMetrics) error {
	if f.TotalDonations < 0 || f.TotalDistributed < 0 || f.CurrentBalance < 0 || f.TotalInvestmentReturn < 0 {
		return docstore.Reject("financial values must not be negative")
	}
	for cause, amount := range f.CauseAllocations {
		if amount < 0 {
			return docstore.Reject("distributed amount for %s must not be negative", cause)
		}
	}
	if f.TotalDistributed > f.TotalDonations+f.TotalInvestmentReturn+financialTolerance {
		return docstore.Reject("distributed funds exceed donations and returns")
	}
	if f.GrowthRate < minGrowthRate || f.GrowthRate > maxGrowthRate {
		return docstore.Reject("growth rate must be between %d and %d", minGrowthRate, maxGrowthRate)
	}
	return nil
}

func onlyFollowersChanged(current, proposed models.Cause) bool {
	if current.Followers == proposed.Followers {
		return false
	}
	proposed.Followers = current.Followers
	proposed.UpdatedAt = current.UpdatedAt
	return causesEqual(current, proposed)
}

func causesEqual(a, b models.Cause) bool {
	if (a.ApprovedAt == nil) != (b.ApprovedAt == nil) {
		return false
	}
	if a.ApprovedAt != nil && !a.ApprovedAt.Equal(*b.ApprovedAt) {
		return false
	}
	a.ApprovedAt, b.ApprovedAt = nil, nil
	return a.ID == b.ID && a.Name == b.Name && a.Description == b.Description && a.Icon == b.Icon &&
		a.CoverImage == b.CoverImage && a.Category == b.Category && a.IsActive == b.IsActive &&
		a.Status == b.Status && a.SortOrder == b.SortOrder && a.FundsRaised == b.FundsRaised &&
		a.CreatedBy == b.CreatedBy && a.CreatedAt.Equal(b.CreatedAt) && a.ApprovedBy == b.ApprovedBy
}

