package domain

import "sort"

// TenantPartition groups customers by the salon they belong to, preserving input order within a salon.
type TenantPartition map[string][]Customer

func PartitionByTenant(customers []Customer) TenantPartition {
	partition := make(TenantPartition)
	for _, c := range customers {
		partition[c.SalonID] = append(partition[c.SalonID], c)
	}
	return partition
}

// Tenants returns the partition keys in sorted order.
func (p TenantPartition) Tenants() []string {
	tenants := make([]string, 0, len(p))
	for tenant := range p {
		tenants = append(tenants, tenant)
	}
	sort.Strings(tenants)
	return tenants
}
