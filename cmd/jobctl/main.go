// jobctl sends one command to a running job card manager.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"go-jobcard-manager/internal/client"
	"go-jobcard-manager/internal/engine"
	"go-jobcard-manager/internal/settings"
)

const usage = `usage: jobctl [-addr host:port] <command> [args]

commands:
  ping | stats | hideNow | dismissNow | showHidden | runAll | debugCards | debugCompanies
  clearDismissed
  undoLast [job-id]
  toggleHiding|toggleAutoDismiss|toggleKeywordDismiss|toggleCompanyBlock on|off
  updateKeywords <term>...      replace the keyword list
  updateCompanies <name>...     replace the blocked company list
  addKeyword|removeKeyword <term>
  addCompany|removeCompany <name>
  export keywords|companies
`

func main() {
	godotenv.Load(".env")
	defaultAddr := os.Getenv("JOBMANAGER_ADDR")
	if defaultAddr == "" {
		defaultAddr = "127.0.0.1:8765"
	}
	addr := flag.String("addr", defaultAddr, "address of the job card manager")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c := client.New("http://" + *addr)
	out, err := run(ctx, c, flag.Arg(0), flag.Args()[1:])
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	fmt.Println(out)
}

func run(ctx context.Context, c *client.Client, action string, args []string) (string, error) {
	switch action {
	case "stats", "getStats":
		st, err := c.Stats(ctx)
		if err != nil {
			return "", err
		}
		return formatStats(st), nil

	case "toggleHiding", "toggleAutoDismiss", "toggleKeywordDismiss", "toggleCompanyBlock":
		if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
			return "", fmt.Errorf("%s needs on or off", action)
		}
		return send(ctx, c, engine.Command{Action: action, Enabled: args[0] == "on"})

	case "updateKeywords":
		return send(ctx, c, engine.Command{Action: action, Keywords: args})
	case "updateCompanies":
		return send(ctx, c, engine.Command{Action: action, Companies: args})

	case "addKeyword", "removeKeyword", "addCompany", "removeCompany":
		if len(args) == 0 {
			return "", fmt.Errorf("%s needs a term", action)
		}
		return editList(ctx, c, action, strings.Join(args, " "))

	case "export":
		if len(args) != 1 {
			return "", fmt.Errorf("export needs keywords or companies")
		}
		s, err := c.Settings(ctx)
		if err != nil {
			return "", err
		}
		switch args[0] {
		case "keywords":
			return settings.Export(s.Keywords), nil
		case "companies":
			return settings.Export(s.BlockedCompanies), nil
		}
		return "", fmt.Errorf("unknown list %q", args[0])

	case "undoLast":
		cmd := engine.Command{Action: action}
		if len(args) > 0 {
			cmd.ID = args[0]
		}
		return send(ctx, c, cmd)
	}
	return send(ctx, c, engine.Command{Action: action})
}

func send(ctx context.Context, c *client.Client, cmd engine.Command) (string, error) {
	resp, err := c.Send(ctx, cmd)
	if err != nil {
		return "", err
	}
	if resp.Status == engine.StatusError {
		return "", fmt.Errorf("%s", resp.Message)
	}
	if resp.Message == "" {
		return resp.Status, nil
	}
	return resp.Message, nil
}

// editList reads the current list, applies one add or remove, and writes
// the whole list back.
func editList(ctx context.Context, c *client.Client, action, term string) (string, error) {
	s, err := c.Settings(ctx)
	if err != nil {
		return "", err
	}
	companies := strings.HasSuffix(action, "Company")
	list := s.Keywords
	if companies {
		list = s.BlockedCompanies
	}

	if strings.HasPrefix(action, "add") {
		list, err = settings.AddTerm(list, term)
		if err != nil {
			return "", err
		}
	} else {
		before := len(list)
		list = settings.RemoveTerm(list, term)
		if len(list) == before {
			return "", fmt.Errorf("%q is not in the list", term)
		}
	}

	if companies {
		return send(ctx, c, engine.Command{Action: "updateCompanies", Companies: list})
	}
	return send(ctx, c, engine.Command{Action: "updateKeywords", Keywords: list})
}

func formatStats(st engine.Stats) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 %d dismissed (%d synced), %d visible, %d hidden\n", st.Dismissed, st.Synced, st.Visible, st.Hidden)
	fmt.Fprintf(&b, "   manual: %d, by engine: %d, pending: %d, immune: %d\n", st.ManualRecorded, st.EngineDismissed, st.Pending, st.Immune)
	if st.LastManual != "" {
		fmt.Fprintf(&b, "   last manual: %s\n", st.LastManual)
	}
	fmt.Fprintf(&b, "   hiding %s, auto-dismiss %s, keywords %s (%d), companies %s (%d)\n",
		onOff(st.Hiding), onOff(st.AutoDismiss), onOff(st.KeywordDismiss), st.Keywords, onOff(st.CompanyBlock), st.Companies)
	fmt.Fprintf(&b, "   running since %s", st.Since.Format(time.RFC822))
	return b.String()
}
