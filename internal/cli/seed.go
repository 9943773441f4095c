package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"trivia-session-service/internal/config"
	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewSeedCmd loads questions into Postgres so the bank is playable. With no
// file argument it installs the bundled starter set.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			questions := memory.DefaultBank()
			if file != "" {
				questions, err = readQuestionsFile(file)
				if err != nil {
					return err
				}
			}

			sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			for _, q := range questions {
				options, err := json.Marshal(q.Options)
				if err != nil {
					return err
				}
				if _, err := db.ExecContext(cmd.Context(),
					`INSERT INTO questions (text, options, correct_option) VALUES (?, ?::jsonb, ?)
					 ON CONFLICT (text) DO NOTHING`,
					q.Text, string(options), q.Correct); err != nil {
					return fmt.Errorf("insert question: %w", err)
				}
			}
			log.Printf("seeded %d questions", len(questions))
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with questions to load")
	return cmd
}

func readQuestionsFile(path string) ([]domain.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("parse questions file: %w", err)
	}
	for _, q := range questions {
		if len(q.Options) < 2 || q.Correct < 1 || q.Correct > len(q.Options) {
			return nil, fmt.Errorf("question %q: invalid options or correct index", q.Text)
		}
	}
	return questions, nil
}
