package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/fatih/color"

	"github.com/taxtaxi/tariffd/internal/domain"
	cardrepo "github.com/taxtaxi/tariffd/internal/repository/ratecard"
)

func runRates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("rates", flag.ExitOnError)
	file := fs.String("file", "", "rate card JSON to validate and push")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("rates: -file is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Schema validation and surcharge compilation happen here, before
	// anything touches storage.
	card, err := cardrepo.Load(*file)
	if err != nil {
		return fmt.Errorf("rates: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	repo := cardrepo.New(store)
	prev, err := repo.Current(ctx)
	switch {
	case err == nil && prev.Version() >= card.Version():
		yellow := color.New(color.FgYellow).SprintFunc()
		log.Printf("%s stored card is v%d, pushing v%d", yellow("warning:"), prev.Version(), card.Version())
	case err != nil && !errors.Is(err, domain.ErrRateCardUnavailable):
		return fmt.Errorf("read current rate card: %w", err)
	}

	if err := repo.Put(ctx, card); err != nil {
		return fmt.Errorf("push rate card: %w", err)
	}

	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	log.Printf("%s rate card v%d (%s) pushed, carriers: %s",
		green("done:"), card.Version(), card.Currency(), strings.Join(card.Carriers(), ", "))
	log.Println("restart tariffd instances to activate the new card")
	return nil
}
