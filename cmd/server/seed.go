package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediaklub/backend/internal/repository"
	"mediaklub/backend/internal/seed"
	"mediaklub/backend/pkg/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "从 YAML 导入摄制组、拍摄角色与用户",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("打开种子文件失败: %w", err)
		}
		defer f.Close()

		file, err := seed.Load(f)
		if err != nil {
			return err
		}

		cfg, logger, _, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()

		db, err := database.NewDB(&cfg.Database, logger)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
		}
		defer sqlDB.Close()

		res, err := seed.NewSeeder(repository.NewRepository(db), logger).Apply(cmd.Context(), file)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "摄制组 %d，角色 %d，用户 %d，跳过 %d\n", res.Stabs, res.Roles, res.Users, res.Skipped)
		return nil
	},
}
