package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	// ZeroCapUnlimited treats a 0% usage cap as "no cap": spend up to balance.
	ZeroCapUnlimited = "unlimited"
	// ZeroCapBlocked treats a 0% usage cap literally: no cashback may be spent.
	ZeroCapBlocked = "blocked"
)

// Policy carries venue-wide operating policy that can change without a
// redeploy.
type Policy struct {
	Cashback CashbackPolicy `mapstructure:"cashback"`
	Receipt  ReceiptPolicy  `mapstructure:"receipt"`
}

type CashbackPolicy struct {
	ZeroCapMode     string `mapstructure:"zero_cap_mode"`
	ExpireBatchSize int    `mapstructure:"expire_batch_size"`
}

type ReceiptPolicy struct {
	VenueName    string `mapstructure:"venue_name"`
	VenueAddress string `mapstructure:"venue_address"`
	Currency     string `mapstructure:"currency"`
	// Timezone is an IANA name used to cut report days; empty means UTC.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (r ReceiptPolicy) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func DefaultPolicy() Policy {
	return Policy{
		Cashback: CashbackPolicy{
			ZeroCapMode:     ZeroCapUnlimited,
			ExpireBatchSize: 500,
		},
		Receipt: ReceiptPolicy{
			VenueName: "Billiard Club",
			Currency:  "UZS",
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

// NewPolicyHolder reads policy.yml and keeps it hot-reloaded. A missing file
// falls back to DefaultPolicy.
func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/cueledger")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CUELEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("cashback.zero_cap_mode", defaults.Cashback.ZeroCapMode)
	v.SetDefault("cashback.expire_batch_size", defaults.Cashback.ExpireBatchSize)
	v.SetDefault("receipt.venue_name", defaults.Receipt.VenueName)
	v.SetDefault("receipt.venue_address", defaults.Receipt.VenueAddress)
	v.SetDefault("receipt.currency", defaults.Receipt.Currency)
	v.SetDefault("receipt.timezone", defaults.Receipt.Timezone)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return nil, err
	}
	if err := ValidatePolicy(p); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(p)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := ValidatePolicy(updated); err != nil {
			log.Printf("[policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	p, ok := h.current.Load().(Policy)
	if !ok {
		return DefaultPolicy()
	}
	return p
}

func ValidatePolicy(p Policy) error {
	switch p.Cashback.ZeroCapMode {
	case ZeroCapUnlimited, ZeroCapBlocked:
	default:
		return fmt.Errorf("cashback.zero_cap_mode must be %q or %q, got %q", ZeroCapUnlimited, ZeroCapBlocked, p.Cashback.ZeroCapMode)
	}
	if p.Cashback.ExpireBatchSize <= 0 {
		return errors.New("cashback.expire_batch_size must be positive")
	}
	if p.Receipt.Timezone != "" {
		if _, err := time.LoadLocation(p.Receipt.Timezone); err != nil {
			return fmt.Errorf("receipt.timezone: %w", err)
		}
	}
	return nil
}
