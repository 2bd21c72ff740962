package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	consulsd "github.com/go-kit/kit/sd/consul"
	"github.com/hashicorp/consul/api"
	authclient "github.com/ichigozero/todokit/authsvc/client"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/authsvc/pkg/authtransport"
	"github.com/ichigozero/todokit/client/session"
	"github.com/ichigozero/todokit/client/taskui"
	"github.com/ichigozero/todokit/tasksvc"
	taskclient "github.com/ichigozero/todokit/tasksvc/client"
	"github.com/ichigozero/todokit/tasksvc/pkg/taskservice"
	"github.com/ichigozero/todokit/tasksvc/pkg/tasktransport"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("todo", flag.ExitOnError)
	var (
		apiURL = fs.String(
			"api.url",
			getEnv("API_URL", "http://localhost:5001"),
			"todosvc base URL",
		)
		consulAddr = fs.String(
			"consul.addr",
			getEnv("CONSUL_ADDR", ""),
			"discover todosvc through this Consul agent instead of api.url",
		)
		sessionFile = fs.String(
			"session.file",
			getEnv("TODO_SESSION", defaultSessionFile()),
			"where the login session is kept",
		)
		hashKey = fs.String(
			"cookie.hash",
			getEnv("COOKIE_HASH_KEY", ""),
			"HMAC key for the session file (generated into <session.file>.key when both keys are empty)",
		)
		blockKey = fs.String(
			"cookie.block",
			getEnv("COOKIE_BLOCK_KEY", ""),
			"AES key for the session file (16, 24 or 32 bytes)",
		)
	)

	fs.Usage = usageFor(fs, os.Args[0]+" [flags] <command> [args]")
	fs.Parse(os.Args[1:])

	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	var logger log.Logger
	{
		logger = log.NewLogfmtLogger(os.Stderr)
		logger = log.With(logger, "ts", log.DefaultTimestampUTC)
		logger = level.NewFilter(logger, level.AllowWarn())
	}

	auth, tasks, err := services(*apiURL, *consulAddr, logger)
	if err != nil {
		fatal(err)
	}

	hash, block := []byte(*hashKey), []byte(*blockKey)
	if len(hash) == 0 && len(block) == 0 {
		if hash, block, err = session.LoadOrCreateKeys(*sessionFile + ".key"); err != nil {
			fatal(err)
		}
	}
	store, err := session.NewFileStore(*sessionFile, hash, block)
	if err != nil {
		fatal(err)
	}

	a := &app{
		session: session.NewManager(auth, store),
		out:     os.Stdout,
		in:      bufio.NewReader(os.Stdin),
	}
	a.view = taskui.New(tasks, a.session)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.run(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		cancel()
		fatal(err)
	}
}

func services(apiURL, consulAddr string, logger log.Logger) (authservice.Service, taskservice.Service, error) {
	if consulAddr == "" {
		auth, err := authtransport.NewHTTPClient(apiURL, logger)
		if err != nil {
			return nil, nil, err
		}
		tasks, err := tasktransport.NewHTTPClient(apiURL, logger)
		if err != nil {
			return nil, nil, err
		}
		return auth, tasks, nil
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = consulAddr
	consulClient, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, nil, err
	}

	var (
		client       = consulsd.NewClient(consulClient)
		retryMax     = 3
		retryTimeout = 5 * time.Second
	)
	auth, err := authclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := taskclient.New(client, logger, retryMax, retryTimeout)
	if err != nil {
		return nil, nil, err
	}
	return auth, tasks, nil
}

type app struct {
	session *session.Manager
	view    *taskui.View
	out     io.Writer
	in      *bufio.Reader
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "signup":
		return a.signup(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		if err := a.session.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out")
		return nil
	case "whoami":
		s, err := a.session.Init(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s <%s>\n", s.User.Name, s.User.Email)
		return nil
	case "list":
		return a.list(ctx, args)
	case "add":
		return a.add(ctx, args)
	case "done":
		return a.toggle(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "rm":
		return a.remove(ctx, args)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

func (a *app) signup(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	var (
		name     = fs.String("name", "", "display name")
		email    = fs.String("email", "", "email address")
		password = fs.String("password", "", "password (prompted when empty)")
	)
	fs.Parse(args)

	if *password == "" {
		*password = a.prompt("Password: ")
	}
	s, err := a.session.Signup(ctx, *name, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed up as %s <%s>\n", s.User.Name, s.User.Email)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	var (
		email    = fs.String("email", "", "email address")
		password = fs.String("password", "", "password (prompted when empty)")
	)
	fs.Parse(args)

	if *password == "" {
		*password = a.prompt("Password: ")
	}
	s, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s!\n", s.User.Name)
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	query := fs.String("q", "", "only show tasks whose title contains this")
	fs.Parse(args)

	if err := a.load(ctx); err != nil {
		return err
	}
	a.view.Filter(*query)
	return a.view.Render(a.out)
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	description := fs.String("d", "", "description")
	fs.Parse(args)

	if _, err := a.session.Init(ctx); err != nil {
		return err
	}
	t, err := a.view.Add(ctx, strings.Join(fs.Args(), " "), *description)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s\n", t.ID)
	return nil
}

func (a *app) toggle(ctx context.Context, args []string) error {
	t, err := a.resolve(ctx, args)
	if err != nil {
		return err
	}
	if t, err = a.view.Toggle(ctx, t.ID); err != nil {
		return err
	}
	state := "open"
	if t.Completed {
		state = "done"
	}
	fmt.Fprintf(a.out, "%s is %s\n", t.Title, state)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	var (
		title       = fs.String("title", "", "new title")
		description = fs.String("d", "", "new description")
	)
	fs.Parse(args)

	var p tasksvc.Patch
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			p.Title = title
		case "d":
			p.Description = description
		}
	})

	t, err := a.resolve(ctx, fs.Args())
	if err != nil {
		return err
	}
	if t, err = a.view.Edit(ctx, t.ID, p); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated %s\n", t.ID)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	t, err := a.resolve(ctx, args)
	if err != nil {
		return err
	}
	if err := a.view.Delete(ctx, t.ID); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Task deleted")
	return nil
}

func (a *app) load(ctx context.Context) error {
	if _, err := a.session.Init(ctx); err != nil {
		return err
	}
	return a.view.Load(ctx)
}

func (a *app) resolve(ctx context.Context, args []string) (tasksvc.Task, error) {
	if len(args) != 1 {
		return tasksvc.Task{}, errors.New("expected exactly one task id")
	}
	if err := a.load(ctx); err != nil {
		return tasksvc.Task{}, err
	}
	return a.view.Resolve(args[0])
}

func (a *app) prompt(label string) string {
	fmt.Fprint(a.out, label)
	line, _ := a.in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func fatal(err error) {
	if errors.Is(err, session.ErrLoggedOut) {
		fmt.Fprintln(os.Stderr, "Not logged in. Run `todo login` first.")
	} else {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(1)
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todo-session"
	}
	return filepath.Join(dir, "todo", "session")
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "COMMANDS\n")
		fmt.Fprintf(os.Stderr, "  signup, login, logout, whoami, list [-q text], add [-d text] <title>,\n")
		fmt.Fprintf(os.Stderr, "  done <id>, edit [-title t] [-d text] <id>, rm <id>\n")
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		value = fallback
	}
	return value
}
