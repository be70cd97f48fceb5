package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Nil config.
	require.Error(t, Validate(nil))

	// Missing socket.
	settings := new(Config)

	err := Validate(settings)
	require.Error(t, err)

	// Bad socket.
	settings = &Config{
		ServerAddress: "bad:address",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Bad webhook.
	settings = &Config{
		ServerAddress:   "127.0.0.1:0",
		SlackWebhookURL: "not a url",
	}

	err = Validate(settings)
	require.Error(t, err)

	// Okay with webhook, defaults are filled.
	settings = &Config{
		ServerAddress:   "127.0.0.1:0",
		HTTPAddress:     ":0",
		SlackWebhookURL: "https://hooks.slack.com/services/T000/B000/XXX",
	}

	err = Validate(settings)
	require.NoError(t, err)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultHookTimeout, settings.HookTimeout)
	require.Equal(t, DefaultStateFilename, settings.StateFile)
	require.Equal(t, DefaultEvidenceDir, settings.EvidenceDir)
	require.Equal(t, DefaultSirenFilename, settings.SirenFile)
}

// TestValidate_LocationAndContacts checks coordinate ranges and contact entries.
func TestValidate_LocationAndContacts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name:    "latitude out of range",
			cfg:     Config{Location: Location{Latitude: 91}},
			wantErr: errLatitudeOutOfRange,
		},
		{
			name:    "longitude out of range",
			cfg:     Config{Location: Location{Longitude: -181}},
			wantErr: errLongitudeOutOfRange,
		},
		{
			name:    "contact without name",
			cfg:     Config{Contacts: []Contact{{Relation: "Mother"}}},
			wantErr: errContactNameRequired,
		},
		{
			name:    "unknown priority",
			cfg:     Config{Contacts: []Contact{{Name: "Mom", Priority: "urgent"}}},
			wantErr: errUnknownPriority,
		},
		{
			name: "valid",
			cfg: Config{
				Location: Location{Latitude: 55.7558, Longitude: 37.6173, Accuracy: 12},
				Contacts: []Contact{{Name: "Mom", Relation: "Mother", Priority: "High"}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := tc.cfg
			cfg.ServerAddress = "127.0.0.1:50051"

			err := Validate(&cfg)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// TestContactString checks the dashboard rendering of a contact.
func TestContactString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Mom (Mother)", Contact{Name: "Mom", Relation: "Mother"}.String())
	require.Equal(t, "Alex", Contact{Name: "Alex"}.String())
	require.False(t, Location{}.IsSet())
	require.True(t, Location{Latitude: 1}.IsSet())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		HookTimeout:   3 * time.Second,
		Location:      Location{Latitude: 40.7128, Longitude: -74.006, Accuracy: 25},
		Contacts: []Contact{
			{Name: "Mom", Relation: "Mother", Priority: "high"},
		},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ServerAddress, loaded.ServerAddress)
	require.Equal(t, settings.HookTimeout, loaded.HookTimeout)
	require.Equal(t, settings.Location, loaded.Location)
	require.Equal(t, settings.Contacts, loaded.Contacts)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}
