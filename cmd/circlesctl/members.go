package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"circles-credit-backend/internal/adapter/memberfile"
	"circles-credit-backend/internal/adapter/repository/mysql"
	"circles-credit-backend/internal/config"
	"circles-credit-backend/internal/domain/uow"
	"circles-credit-backend/internal/infrastructure/db"
)

func membersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage the member directory",
	}
	cmd.AddCommand(importMembersCmd())
	return cmd
}

type importReport struct {
	File     string   `json:"file"`
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}

func importMembersCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy a JSON members file into the members table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			gdb, err := db.OpenGorm(cfg.Database.Driver, cfg.Database.DSN())
			if err != nil {
				return err
			}
			if sqlDB, err := gdb.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := db.Migrate(gdb); err != nil {
				return err
			}

			rep, err := importMembers(cmd.Context(), mysql.NewGormUoW(gdb), file)
			if perr := printJSON(cmd.OutOrStdout(), rep); perr != nil && err == nil {
				err = perr
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Members JSON file")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// importMembers upserts every member with a recipient id in one transaction.
// Rows without one are reported, not fatal; any write error imports nothing.
func importMembers(ctx context.Context, tx uow.UnitOfWork, file string) (importReport, error) {
	rep := importReport{File: file}
	members, err := memberfile.Load(file)
	if err != nil || len(members) == 0 {
		return rep, err
	}
	err = tx.WithinTx(ctx, func(r uow.Repos) error {
		rep.Imported, rep.Skipped = 0, nil
		for i := range members {
			m := members[i]
			if m.RecipientID == 0 {
				rep.Skipped = append(rep.Skipped, fmt.Sprintf("entry %d: no telegramUserId", i))
				continue
			}
			if err := r.Members.Upsert(ctx, &m); err != nil {
				return fmt.Errorf("import member %d: %w", m.RecipientID, err)
			}
			rep.Imported++
		}
		return nil
	})
	if err != nil {
		rep.Imported = 0
	}
	return rep, err
}
