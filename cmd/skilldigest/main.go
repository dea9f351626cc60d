// SkillDigest — 每日 Claude Code Skill 精选流水线
//
// Usage:
//
//	skilldigest run        # 运行一次完整流水线
//	skilldigest fetch      # 刷新技能目录
//	skilldigest select     # 查看当日选题
//	skilldigest ledger     # 发布台账管理
//	skilldigest history    # 运行历史
//	skilldigest serve      # 定时任务模式
//	skilldigest version    # 显示版本
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skilldigest/skilldigest/internal/artifact"
	"github.com/skilldigest/skilldigest/internal/catalog"
	"github.com/skilldigest/skilldigest/internal/config"
	"github.com/skilldigest/skilldigest/internal/generator"
	"github.com/skilldigest/skilldigest/internal/journal"
	"github.com/skilldigest/skilldigest/internal/ledger"
	"github.com/skilldigest/skilldigest/internal/pipeline"
	"github.com/skilldigest/skilldigest/internal/publisher"
	"github.com/skilldigest/skilldigest/internal/selector"
	"github.com/skilldigest/skilldigest/internal/sources"
	"github.com/skilldigest/skilldigest/pkg/llm"
	"github.com/skilldigest/skilldigest/pkg/notify"
	"github.com/skilldigest/skilldigest/pkg/storage"
)

var version = "dev"

func main() {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:   "skilldigest",
		Short: "每日 Claude Code Skill 精选流水线",
		Long:  "SkillDigest 从多个来源聚合 Claude Code Skills，每天确定性地选出一款未发布过的，生成评测文章并发布。",
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "skilldigest.yaml", "配置文件路径")

	rootCmd.AddCommand(runCmd(&cfgPath))
	rootCmd.AddCommand(fetchCmd(&cfgPath))
	rootCmd.AddCommand(selectCmd(&cfgPath))
	rootCmd.AddCommand(ledgerCmd(&cfgPath))
	rootCmd.AddCommand(historyCmd(&cfgPath))
	rootCmd.AddCommand(serveCmd(&cfgPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd(cfgPath *string) *cobra.Command {
	var forceRefresh bool
	var date string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "运行一次完整流水线",
		Long:  "刷新目录（按需）、选题、生成文章、发布并记录台账。同一天重复运行是安全的。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDate(date); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()

			app, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			out := app.pipe.Run(ctx, pipeline.Options{ForceRefresh: forceRefresh, Date: date})
			return printOutcome(out)
		},
	}

	cmd.Flags().BoolVar(&forceRefresh, "force-refresh", false, "忽略缓存 TTL，强制刷新目录")
	cmd.Flags().StringVar(&date, "date", "", "指定运行日期 (YYYY-MM-DD)，默认今天")
	return cmd
}

func fetchCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "刷新技能目录",
		Long:  "从所有配置的来源重新聚合技能目录并持久化快照。",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}

			store := catalog.NewStore(cfg.CatalogPath())
			snap, err := store.Refresh(ctx, buildRegistry(cfg))
			if err != nil {
				return fmt.Errorf("刷新目录失败: %w", err)
			}
			if snap.Stale {
				fmt.Println("⚠️  刷新失败，继续使用上次的目录快照")
			}
			fmt.Printf("✅ 目录共 %d 个 Skill（更新于 %s）\n",
				snap.Len(), snap.RefreshedAt.Local().Format("2006-01-02 15:04"))
			return nil
		},
	}
}

func selectCmd(cfgPath *string) *cobra.Command {
	var date string
	var mark bool

	cmd := &cobra.Command{
		Use:   "select",
		Short: "查看当日选题",
		Long:  "对指定日期执行选题并固定到选题日志，不生成文章。--mark 直接把选题写入发布台账。",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkDate(date); err != nil {
				return err
			}
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			if date == "" {
				loc, err := cfg.Location()
				if err != nil {
					return err
				}
				date = time.Now().In(loc).Format(time.DateOnly)
			}

			snap, err := catalog.NewStore(cfg.CatalogPath()).Load()
			if errors.Is(err, catalog.ErrNoSnapshot) {
				return fmt.Errorf("目录为空，请先运行 skilldigest fetch")
			}
			if err != nil {
				return err
			}

			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}

			sel := selector.New(selector.NewLog(cfg.SelectionLogDir()))
			res, err := sel.Pick(date, snap, led)
			if err != nil {
				return err
			}
			if !res.Eligible {
				fmt.Printf("⚪ %s 没有可选的新 Skill（目录 %d 个全部发布过或不可安装）\n", date, snap.Len())
				return nil
			}

			sk := res.Skill
			fmt.Printf("🎯 %s 选题：%s\n", date, sk.Name)
			fmt.Printf("   类别: %s\n", sk.Category)
			fmt.Printf("   来源: %s\n", sk.SourceURL)
			if !sk.LastUpdatedAt.IsZero() {
				fmt.Printf("   更新: %s\n", sk.LastUpdatedAt.Format(time.DateOnly))
			}
			if res.Reused {
				fmt.Println("   （今日选题已固定，重复运行不会改变）")
			}

			if mark {
				if err := led.MarkPublished(sk.Identity, sk.Name, sk.Category, date); err != nil {
					return err
				}
				fmt.Println("✅ 已写入发布台账")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "指定日期 (YYYY-MM-DD)，默认今天")
	cmd.Flags().BoolVar(&mark, "mark", false, "将选题直接标记为已发布")
	return cmd
}

func ledgerCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "发布台账管理",
	}
	cmd.AddCommand(ledgerListCmd(cfgPath))
	cmd.AddCommand(ledgerPruneCmd(cfgPath))
	return cmd
}

func ledgerListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "列出全部已发布记录",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}

			records := led.Records()
			if len(records) == 0 {
				fmt.Println("台账为空。")
				return nil
			}
			fmt.Printf("已发布 (%d):\n\n", len(records))
			for _, r := range records {
				fmt.Printf("  %s  [%s]  %s\n", r.PublishedAt, r.Category, r.Name)
			}
			return nil
		},
	}
}

func ledgerPruneCmd(cfgPath *string) *cobra.Command {
	var keepDays int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "删除早于 N 天的台账记录",
		Long:  "被删除的 Skill 重新变为可选。这是唯一会缩小台账的操作，请谨慎使用。",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			led, err := ledger.Open(cfg.LedgerPath())
			if err != nil {
				return err
			}

			removed, err := led.Prune(keepDays, time.Now())
			if err != nil {
				return err
			}
			fmt.Printf("✅ 删除 %d 条记录，保留 %d 条\n", removed, led.Len())
			return nil
		},
	}

	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "保留最近 N 天的记录（必填）")
	cmd.MarkFlagRequired("keep-days")
	return cmd
}

func historyCmd(cfgPath *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "显示最近的运行历史",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
				return fmt.Errorf("create state dir: %w", err)
			}
			db, err := storage.Open(cfg.Journal)
			if err != nil {
				return fmt.Errorf("open journal db: %w", err)
			}
			defer db.Close()

			jour, err := journal.Open(ctx, db)
			if err != nil {
				return err
			}
			runs, err := jour.Recent(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("还没有运行记录。")
				return nil
			}

			for _, r := range runs {
				dur := r.FinishedAt.Sub(r.StartedAt).Round(100 * time.Millisecond)
				fmt.Printf("%s %s  %-11s", statusEmoji(r.Status), r.Date, r.Status)
				if r.Name != "" {
					fmt.Printf("  %s", r.Name)
				}
				if r.Status == pipeline.StatusFailed {
					fmt.Printf("  [%s] %s", r.Stage, r.Error)
				}
				fmt.Printf("  (%s)\n", dur)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "显示条数")
	return cmd
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "以定时任务模式运行",
		Long:  "常驻进程，每天在配置的时间点运行一次流水线。外部 cron 调用 run 仍是推荐的部署方式。",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			app, err := buildApp(ctx, *cfgPath)
			if err != nil {
				return err
			}
			defer app.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			go func() {
				<-sigCh
				slog.Info("shutdown signal received")
				cancel()
			}()

			return app.pipe.RunDaily(ctx, app.cfg.Schedule.At)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("skilldigest %s\n", version)
		},
	}
}

// app bundles the fully wired pipeline for run/serve. Lighter commands wire
// only what they touch.
type app struct {
	cfg  config.Config
	pipe *pipeline.Pipeline
	llm  llm.Client
	db   *storage.DB
}

func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	var client llm.Client
	if cfg.LLM.APIKey != "" {
		client, err = llm.NewWithFallback(cfg.LLM.Config, cfg.LLM.BackupModel)
		if err != nil {
			return nil, fmt.Errorf("create llm client: %w", err)
		}
		a.llm = client
	} else {
		slog.Warn("no llm api key configured, articles use the template generator")
	}

	var cover *generator.CoverRenderer
	if cfg.Cover.Enabled {
		cover = generator.NewCoverRenderer()
	}

	pub, err := publisher.New(cfg.Publisher)
	if err != nil {
		a.Close()
		return nil, err
	}

	db, err := storage.Open(cfg.Journal)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	a.db = db
	jour, err := journal.Open(ctx, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	alerts := notify.NewDispatcher()
	if cfg.Alerts.Telegram.BotToken != "" {
		alerts.Register(notify.NewTelegramNotifier(cfg.Alerts.Telegram))
	}
	if cfg.Alerts.Webhook.URL != "" {
		alerts.Register(notify.NewWebhookNotifier(cfg.Alerts.Webhook))
	}

	a.pipe = pipeline.New(pipeline.Deps{
		Catalog:    catalog.NewStore(cfg.CatalogPath()),
		Aggregator: buildRegistry(cfg),
		Selector:   selector.New(selector.NewLog(cfg.SelectionLogDir())),
		Ledger:     led,
		Generator:  generator.New(client, generator.NewReadmeFetcher(), cover),
		Artifacts:  artifact.NewStore(cfg.OutputDir),
		Publisher:  pub,
		Journal:    jour,
		Alerts:     alerts,
		Location:   loc,
		RefreshTTL: cfg.RefreshTTL,
	})
	return a, nil
}

func (a *app) Close() {
	if a.llm != nil {
		a.llm.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}

func buildRegistry(cfg config.Config) *sources.Registry {
	reg := sources.NewRegistry()
	reg.Register(sources.NewAwesomeSource(cfg.Sources.AwesomeListURL))
	for _, base := range cfg.Sources.Marketplaces {
		reg.Register(sources.NewMarketplaceSource(marketplaceName(base), base))
	}
	if cfg.Sources.EnrichLimit > 0 {
		reg.SetEnricher(sources.NewGitHubEnricher(cfg.Sources.GitHubToken, cfg.Sources.EnrichLimit))
	}
	return reg
}

func marketplaceName(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return base
	}
	return u.Host
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func checkDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("日期格式应为 YYYY-MM-DD: %q", date)
	}
	return nil
}

// printOutcome renders the run result for the console and returns an error
// for failed runs so the process exits non-zero.
func printOutcome(out *pipeline.Outcome) error {
	if out.StaleCatalog {
		fmt.Println("⚠️  目录刷新失败，本次使用上次缓存的快照")
	}

	switch out.Status {
	case pipeline.StatusNoEligible:
		fmt.Printf("⚪ %s 没有可选的新 Skill，全部已发布过\n", out.Date)
	case pipeline.StatusGenerated, pipeline.StatusPublished:
		verb := "已发布"
		if out.Status == pipeline.StatusGenerated {
			verb = "已生成"
		}
		if out.AlreadyPublished {
			fmt.Printf("✅ %s 今日%s过：%s，无需重复运行\n", out.Date, verb, out.Skill.Name)
			return nil
		}
		fmt.Printf("✅ %s %s：%s\n", out.Date, verb, out.Skill.Name)
		fmt.Printf("   文章: %s\n", out.ArticlePath)
		if out.CoverPath != "" {
			fmt.Printf("   封面: %s\n", out.CoverPath)
		}
		if out.Receipt != nil {
			fmt.Printf("   渠道: %s (id=%s)\n", out.Receipt.Channel, out.Receipt.ID)
		}
		if out.TokensIn+out.TokensOut > 0 {
			fmt.Printf("📊 Tokens: %d in / %d out | Cost: $%.4f\n", out.TokensIn, out.TokensOut, out.Cost)
		}
	case pipeline.StatusFailed:
		return fmt.Errorf("❌ %s 阶段失败: %w", out.Stage, out.Err)
	}
	return nil
}

func statusEmoji(status string) string {
	switch status {
	case pipeline.StatusPublished:
		return "✅"
	case pipeline.StatusGenerated:
		return "📝"
	case pipeline.StatusNoEligible:
		return "⚪"
	case pipeline.StatusFailed:
		return "❌"
	default:
		return "•"
	}
}
