package schedcli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/apiapp"
	"github.com/mrkishore97/production-scheduler-v3/internal/clientapp"
	"github.com/mrkishore97/production-scheduler-v3/internal/envutil"
	"github.com/mrkishore97/production-scheduler-v3/internal/logutil"
	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
	"github.com/mrkishore97/production-scheduler-v3/internal/orderstore"
	"github.com/mrkishore97/production-scheduler-v3/internal/security"
	"github.com/mrkishore97/production-scheduler-v3/internal/spreadsheet"
)

var ErrUsage = errors.New("usage")

var logger = logutil.InitLogger()

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runCommand(args[1:])
	case "import":
		return runImport(args[1:])
	case "customers":
		return runCustomers(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: scheduler <setup|run|import|customers> [...]", ErrUsage)
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: scheduler setup --admin-password <password> [--admin-username admin] [--save-password <password>] [--force]")
	fmt.Fprintln(w, "       scheduler run api|client|all")
	fmt.Fprintln(w, "       scheduler import [--db orders.db] [--aliases aliases.yml] [--force] <order-book file>")
	fmt.Fprintln(w, "       scheduler customers add --username <login> --password <password> --names \"Acme,Acme Corp\" [--db orders.db]")
}

func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	adminUser := fs.String("admin-username", "admin", "initial admin username")
	adminPass := fs.String("admin-password", "", "initial admin password (min 12 chars)")
	savePass := fs.String("save-password", "", "password gating destructive order book writes")
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *adminPass == "" {
		return errors.New("--admin-password is required")
	}
	if _, err := security.HashPassword(*adminPass); err != nil {
		return fmt.Errorf("invalid admin password: %w", err)
	}

	values := map[string]string{
		"ADMIN_USERNAME": *adminUser,
		"ADMIN_PASSWORD": *adminPass,
		"ORDERS_DB_PATH": "orders.db",
		"API_ADDR":       ":8080",
		"CLIENT_ADDR":    ":3000",
		"API_BASE_URL":   "http://localhost:8080",
	}
	if *savePass != "" {
		hash, err := security.HashPassword(*savePass)
		if err != nil {
			return fmt.Errorf("invalid save password: %w", err)
		}
		values["SAVE_PASSWORD_HASH"] = hash
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runCommand(args []string) error {
	if len(args) < 1 {
		return errors.New("missing run target: api | client | all")
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch args[0] {
	case "api":
		return runAPI(ctx)
	case "client":
		return runClient(ctx)
	case "all":
		return runAll(ctx)
	default:
		return fmt.Errorf("unknown run target %q", args[0])
	}
}

func runAPI(ctx context.Context) error {
	cfg := apiapp.DefaultConfigFromEnv()
	paths := []string{cfg.DBPath}
	if cfg.AuditLogPath != "" {
		paths = append(paths, cfg.AuditLogPath)
	}
	if err := ensureParentDirs(paths...); err != nil {
		return err
	}
	if err := apiapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runClient(ctx context.Context) error {
	cfg := clientapp.DefaultConfigFromEnv()
	if err := clientapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runAll(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() { errCh <- runAPI(ctx) }()
	go func() {
		time.Sleep(500 * time.Millisecond)
		errCh <- runClient(ctx)
	}()

	for i := 0; i < 2; i++ {
		err := <-errCh
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// runImport loads a spreadsheet straight into the order store, sharing the
// signature gate with the HTTP import so a cron re-run of the same file is a
// no-op.
func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dbPath := fs.String("db", "", "sqlite database path (defaults to ORDERS_DB_PATH)")
	aliasPath := fs.String("aliases", "", "YAML alias config path (defaults to ALIAS_CONFIG_PATH)")
	force := fs.Bool("force", false, "import even when the file is unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: scheduler import <order-book file>", ErrUsage)
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	cfg := apiapp.DefaultConfigFromEnv()
	if *dbPath == "" {
		*dbPath = cfg.DBPath
	}
	if *aliasPath == "" {
		*aliasPath = cfg.AliasConfigPath
	}

	aliases := orderbook.DefaultAliases
	if *aliasPath != "" {
		aliasConfig, err := orderbook.LoadAliasConfig(*aliasPath)
		if err != nil {
			return err
		}
		aliases = aliasConfig.MergedAliases()
	}

	path := fs.Arg(0)
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read order book: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("order book file is empty")
	}

	rows, err := spreadsheet.ReadRows(bytes.NewReader(raw), filepath.Base(path))
	if err != nil {
		return fmt.Errorf("read order book: %w", err)
	}
	table, err := orderbook.Normalize(rows, aliases, nil)
	if err != nil {
		return err
	}

	if err := ensureParentDirs(*dbPath); err != nil {
		return err
	}
	store, err := orderstore.Open(*dbPath, logger)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	signature := spreadsheet.Signature(raw)
	_, info, err := store.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("load order book: %w", err)
	}
	if !*force && info.Signature == signature {
		fmt.Println("order book unchanged, nothing imported")
		return nil
	}

	if err := orderstore.WithRetry(func() error {
		return store.ReplaceSnapshot(ctx, table, filepath.Base(path), signature)
	}); err != nil {
		return fmt.Errorf("save order book: %w", err)
	}

	filtered := len(rows) - 1 - len(table.Orders)
	fmt.Printf("imported %d orders from %s (%d rows filtered out)\n", len(table.Orders), filepath.Base(path), filtered)
	return nil
}

func runCustomers(args []string) error {
	if len(args) < 1 || args[0] != "add" {
		return fmt.Errorf("%w: scheduler customers add --username <login> --password <password> --names \"Acme\"", ErrUsage)
	}

	fs := flag.NewFlagSet("customers add", flag.ContinueOnError)
	username := fs.String("username", "", "customer login name")
	password := fs.String("password", "", "customer password (min 12 chars)")
	names := fs.String("names", "", "comma separated customer names the login may view")
	dbPath := fs.String("db", "", "sqlite database path (defaults to ORDERS_DB_PATH)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	if strings.TrimSpace(*username) == "" || *password == "" {
		return errors.New("--username and --password are required")
	}
	ownedNames := splitNames(*names)
	if len(ownedNames) == 0 {
		return errors.New("--names must list at least one customer name")
	}

	if err := envutil.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	if *dbPath == "" {
		*dbPath = apiapp.DefaultConfigFromEnv().DBPath
	}

	if err := ensureParentDirs(*dbPath); err != nil {
		return err
	}
	store, err := orderstore.Open(*dbPath, logger)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer store.Close()

	id, err := store.CreateCustomerUser(context.Background(), strings.TrimSpace(*username), *password, ownedNames)
	if err != nil {
		return fmt.Errorf("create customer user: %w", err)
	}
	fmt.Printf("created customer user %s (id %d) with access to %s\n",
		strings.TrimSpace(*username), id, strings.Join(ownedNames, ", "))
	return nil
}

func splitNames(raw string) []string {
	parts := strings.Split(raw, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func ensureParentDirs(paths ...string) error {
	for _, p := range paths {
		dir := filepath.Dir(p)
		if dir == "." || dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}
