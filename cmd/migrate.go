package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/anoixa/story-overlay/config"
	"github.com/anoixa/story-overlay/database"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migration",
	Long:  `Create or update the database schema without starting the server.`,
	Run: func(cmd *cobra.Command, args []string) {
		config.InitConfig()
		cfg := config.Get()

		db, err := database.NewDB(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		}()

		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration finished successfully")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
