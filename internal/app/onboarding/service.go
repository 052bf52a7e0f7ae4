package onboarding

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"scaffold/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// DisplayName is the generated name assigned to the account.
	DisplayName string
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// SettingsSeeded reports whether default settings were written by this call.
	SettingsSeeded bool
}

// Service handles post-auth onboarding for new users.
type Service struct {
	accounts ports.AccountPort
	settings ports.SettingsPort
	rng      *rand.Rand
}

// NewService constructs an onboarding service with required ports.
// accounts/settings must be non-nil; rng may be nil to use a time-seeded default.
func NewService(accounts ports.AccountPort, settings ports.SettingsPort, rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		accounts: accounts,
		settings: settings,
		rng:      rng,
	}
}

// OnboardNewUser gives a newly created account a display name and default
// table settings. Only a settings failure is returned as an error.
func (s *Service) OnboardNewUser(ctx context.Context, userID string) (Result, error) {
	if s.accounts == nil || s.settings == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	result := Result{DisplayName: s.generateFriendlyName()}
	if err := s.accounts.UpdateProfile(ctx, userID, result.DisplayName); err != nil {
		result.ProfileUpdateErr = err
	}

	seeded, err := s.settings.SeedDefaults(ctx, userID)
	if err != nil {
		return result, fmt.Errorf("failed to seed settings: %w", err)
	}
	result.SettingsSeeded = seeded

	return result, nil
}

func (s *Service) generateFriendlyName() string {
	adjectives := []string{"Steady", "Wobbly", "Careful", "Bold", "Nimble", "Calm", "Lofty", "Daring", "Quick", "Patient"}
	nouns := []string{"Builder", "Crane", "Mason", "Tower", "Beam", "Pillar", "Rigger", "Arch", "Girder", "Ladder"}

	adj := adjectives[s.rng.Intn(len(adjectives))]
	noun := nouns[s.rng.Intn(len(nouns))]
	num := s.rng.Intn(9000) + 1000

	return fmt.Sprintf("%s%s%d", adj, noun, num)
}
