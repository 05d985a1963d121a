// Package domain contains core concepts of the messaging system.
// No runtime, network, or storage logic should be added here.
package domain

import "time"

// User is the read-only identity the core works with. Accounts are
// provisioned through the auth service and never mutated by the pipeline.
type User struct {
	ID           string
	Username     string
	Name         string
	AvatarURL    string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}
