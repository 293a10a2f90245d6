package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/fatih/color"

	"github.com/taxtaxi/tariffd/internal/domain"
	corpusrepo "github.com/taxtaxi/tariffd/internal/repository/corpus"
	cardrepo "github.com/taxtaxi/tariffd/internal/repository/ratecard"
)

// runVerify checks the startup preconditions tariffd enforces: a corpus
// index built with the configured embedding family and a stored rate card.
func runVerify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vec, _, err := configuredVectorizer(cfg.Embedding)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var (
		ok   = color.New(color.FgGreen).SprintFunc()
		bad  = color.New(color.FgRed, color.Bold).SprintFunc()
		fail int
	)

	repo := corpusrepo.New(store, vec)
	meta, err := repo.ReadMeta(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Printf("%s corpus index: not built (run corpusctl index)", bad("FAIL"))
		fail++
	case err != nil:
		return fmt.Errorf("read index metadata: %w", err)
	case !meta.Family().SameFamily(vec):
		stored := meta.Family()
		log.Printf("%s corpus index: embedding family mismatch: stored %s/%s/%d, configured %s/%s/%d (rebuild with corpusctl index -purge)",
			bad("FAIL"),
			stored.Provider, stored.Model, stored.Dimensions,
			vec.Provider, vec.Model, vec.Dimensions)
		fail++
	default:
		count, err := repo.Count(ctx)
		if err != nil {
			return fmt.Errorf("count documents: %w", err)
		}
		log.Printf("%s corpus index: %s/%s/%d, built %s, %d documents",
			ok("OK"), meta.Provider, meta.Model, meta.Dimensions, meta.BuiltAt, count)
		if count != meta.Documents {
			log.Printf("note: metadata records %d documents, index holds %d", meta.Documents, count)
		}
	}

	card, err := cardrepo.New(store).Current(ctx)
	switch {
	case errors.Is(err, domain.ErrRateCardUnavailable):
		log.Printf("%s rate card: none stored (run corpusctl rates, or let tariffd seed from %s)",
			bad("FAIL"), cfg.RateCard.SeedPath)
		fail++
	case err != nil:
		return fmt.Errorf("read rate card: %w", err)
	default:
		log.Printf("%s rate card: v%d (%s), %d carriers",
			ok("OK"), card.Version(), card.Currency(), len(card.Carriers()))
	}

	if fail > 0 {
		return fmt.Errorf("verify: %d check(s) failed", fail)
	}
	log.Println("verify: all checks passed")
	return nil
}
