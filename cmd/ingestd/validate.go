package main

import (
	"fmt"

	"github.com/econdata/tsengine/pkg/catalog"
	"github.com/spf13/cobra"
)

var catalogValidateCmd = &cobra.Command{
	Use:   "catalog-validate",
	Short: "Check the catalog's series index against the partition files on disk",
	RunE:  runCatalogValidate,
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cat, err := catalog.Open(cfg.CatalogRoot)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	report := cat.Validate(cfg.DataRoot)

	fmt.Printf("catalog validation: %d missing file(s), %d orphaned file(s), %d error(s)\n",
		len(report.MissingFiles), len(report.OrphanedFiles), len(report.Errors))
	for _, f := range report.MissingFiles {
		fmt.Printf("  missing: %s\n", f)
	}
	for _, f := range report.OrphanedFiles {
		fmt.Printf("  orphaned: %s\n", f)
	}
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}

	if len(report.MissingFiles) > 0 || len(report.Errors) > 0 {
		return fmt.Errorf("catalog validation found problems")
	}
	return nil
}
