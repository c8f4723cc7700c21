package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MrEthical07/kinvex"
	"github.com/MrEthical07/kinvex/inventory"
	"github.com/MrEthical07/kinvex/metrics/export/prometheus"
)

func cmdLogin(ctx context.Context, c *kinvex.Client, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", os.Getenv("KINVEX_USERNAME"), "username")
	password := fs.String("p", "", "password (default $KINVEX_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		*password = os.Getenv("KINVEX_PASSWORD")
	}
	if *username == "" && fs.NArg() > 0 {
		*username = fs.Arg(0)
	}

	if err := c.Initialize(ctx); err != nil {
		return err
	}
	user, err := c.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func cmdWhoami(ctx context.Context, c *kinvex.Client) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	user := c.User()
	if user == nil {
		return errors.New("not signed in")
	}
	printUser(user)
	for _, r := range c.Navigation() {
		fmt.Printf("  %-12s %s\n", r.Path, r.Label)
	}
	return nil
}

func cmdLogout(ctx context.Context, c *kinvex.Client) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	return c.Logout(ctx)
}

func cmdRefresh(ctx context.Context, c *kinvex.Client) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	if !c.Authenticated() {
		return errors.New("not signed in")
	}
	user, err := c.Refresh(ctx)
	if err != nil {
		return err
	}
	printUser(user)
	return nil
}

func cmdProducts(ctx context.Context, c *kinvex.Client, args []string) error {
	fs := flag.NewFlagSet("products", flag.ContinueOnError)
	page := fs.Int("page", 0, "page number, from 0")
	size := fs.Int("size", 20, "page size")
	name := fs.String("name", "", "filter by product name")
	low := fs.Bool("low", false, "only products at or below minimum stock")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := c.Initialize(ctx); err != nil {
		return err
	}
	if !c.Authenticated() {
		return errors.New("not signed in")
	}
	svc := inventory.New(c.Gateway())

	var products []inventory.Product
	var footer string
	if *low {
		list, err := svc.Products.LowStock(ctx)
		if err != nil {
			return err
		}
		products = list
	} else {
		p, err := svc.Products.List(ctx, inventory.PageRequest{Page: *page, Size: *size}, inventory.ProductCriteria{Name: *name})
		if err != nil {
			return err
		}
		products = p.Content
		footer = fmt.Sprintf("page %d of %d, %d products", p.Number+1, max(p.TotalPages, 1), p.TotalElements)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tSTOCK\tMIN\tPRICE")
	for _, p := range products {
		mark := ""
		if p.LowStock() {
			mark = " !"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d%s\t%d\t%.2f\n", p.ID, p.Code, p.Name, p.CurrentStock, mark, p.MinStock, p.UnitPrice)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if footer != "" {
		fmt.Println(footer)
	}
	return nil
}

// cmdWatch keeps the session under watch until it ends or the process is
// interrupted.
func cmdWatch(ctx context.Context, c *kinvex.Client, opts options) error {
	if err := c.Initialize(ctx); err != nil {
		return err
	}
	if !c.Authenticated() {
		return errors.New("not signed in")
	}
	user := c.User()
	fmt.Printf("watching session of %s\n", user.Username)

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", prometheus.NewExporter(c).Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "metrics: %v\n", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	poll := time.NewTicker(time.Second)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll.C:
			if !c.Authenticated() {
				return kinvex.ErrSessionExpired
			}
		}
	}
}

func cmdDoctor(c *kinvex.Client) error {
	r := c.SecurityReport()
	fmt.Printf("api host:      %s (tls %t)\n", r.APIHost, r.TransportEncrypted)
	fmt.Printf("token store:   %s (persistent %t, sealed %t)\n", r.StoreBackend, r.StorePersistent, r.StoreSealed)
	fmt.Printf("watchdog:      %t (warn at %s)\n", r.WatchdogEnabled, r.WarningThreshold)
	fmt.Printf("audit/metrics: %t/%t\n", r.AuditEnabled, r.MetricsEnabled)
	for _, w := range r.Warnings() {
		fmt.Printf("warning: %s\n", w)
	}
	return nil
}

func printUser(u *kinvex.User) {
	fmt.Printf("%s <%s> %s\n", u.Username, u.Email, strings.ToLower(string(u.Role)))
}
