package tracker

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SeedFile is the YAML definition of the banks and cards to track.
//
//	banks:
//	  - name: 台北富邦銀行
//	    code: "012"
//	    cards:
//	      - name: 富邦 J 卡
//	        url: https://www.fubon.com/.../j_card_rates.htm
type SeedFile struct {
	Banks []SeedBank `yaml:"banks"`
}

// SeedBank is one institution with its tracked cards.
type SeedBank struct {
	Name  string     `yaml:"name"`
	Code  string     `yaml:"code"`
	Cards []SeedCard `yaml:"cards"`
}

// SeedCard is one tracked reward-terms page.
type SeedCard struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	return &seed, nil
}

// Validate rejects seed entries that would create untrackable targets.
func (s *SeedFile) Validate() error {
	if len(s.Banks) == 0 {
		return fmt.Errorf("seed file defines no banks")
	}
	for _, bank := range s.Banks {
		if bank.Name == "" {
			return fmt.Errorf("seed file contains a bank without a name")
		}
		for _, card := range bank.Cards {
			if card.Name == "" {
				return fmt.Errorf("bank %q contains a card without a name", bank.Name)
			}
			if card.URL == "" {
				return fmt.Errorf("card %q has no url", card.Name)
			}
		}
	}
	return nil
}

// ApplySeed upserts the seed's banks and cards. It is idempotent: existing
// banks and cards are left untouched, so re-running a seed never mutates a
// tracked target.
func (s *Service) ApplySeed(ctx context.Context, seed *SeedFile) error {
	for _, sb := range seed.Banks {
		bank, err := s.store.EnsureBank(ctx, sb.Name, sb.Code)
		if err != nil {
			return err
		}
		for _, sc := range sb.Cards {
			card, err := s.store.EnsureCard(ctx, bank.ID, sc.Name, sc.URL)
			if err != nil {
				return err
			}
			s.logger.Info("Seeded card",
				zap.String("bank", bank.Name),
				zap.Uint("card_id", card.ID),
				zap.String("card", card.Name))
		}
	}
	return nil
}
