package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	cl "clickrush/internal/cli"
	"clickrush/internal/config"
	"clickrush/internal/syncq"

	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "crush",
		Short:        "Clickrush CLI game client",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRegisterCmd(&apiBase),
		newLoginCmd(&apiBase),
		newLogoutCmd(),
		newClickCmd(&apiBase),
		newProgressionCmd(&apiBase),
		newInitCmd(&apiBase),
		newResetCmd(&apiBase),
		newCostCmd(&apiBase),
		newTopCmd(&apiBase),
		newShopCmd(&apiBase),
		newInventoryCmd(&apiBase),
		newBuyCmd(&apiBase),
		newSyncCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

// offline reports whether the error is a transport failure rather than
// an API rejection, so the write can be queued for `crush sync`.
func offline(err error) bool {
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func newRegisterCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "register",
		Short: "Create a Clickrush account",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Register(ctx, username, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:    out.Token,
				Username: out.User.Username,
				UserID:   out.User.ID,
			}); err != nil {
				return err
			}
			if _, err := client.InitProgression(ctx, out.Token); err != nil {
				printWarn("Account created but progression init failed; run `crush init`.")
				return nil
			}
			printSuccess("Account created. Session saved.")
			return nil
		},
	}
}

func newLoginCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Login to Clickrush",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := promptRequired("Username")
			if err != nil {
				return err
			}
			password, err := promptRequired("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Login(ctx, username, password)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{
				Token:    out.Token,
				Username: out.User.Username,
				UserID:   out.User.ID,
			}); err != nil {
				return err
			}
			printSuccess("Login successful.")
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear local session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newClickCmd(apiBase *string) *cobra.Command {
	var times int
	cmd := &cobra.Command{
		Use:   "click",
		Short: "Click the button",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			if times < 1 {
				times = 1
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)

			for i := 0; i < times; i++ {
				out, err := client.Click(ctx, sess.Token)
				if err != nil {
					if offline(err) {
						if qerr := syncq.Push(syncq.Command{Method: "POST", Path: "/v1/game/click"}); qerr != nil {
							return qerr
						}
						printWarn("API unreachable; click queued for `crush sync`.")
						return nil
					}
					return err
				}
				if i == times-1 {
					printSuccess(fmt.Sprintf("Count: %d (x%d multiplier)", out.Count, out.Multiplier))
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&times, "times", "n", 1, "number of clicks to send")
	return cmd
}

func newProgressionCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "progression",
		Short: "Show your progression",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Progression(ctx, sess.Token)
			if err != nil {
				return err
			}
			printHeading(fmt.Sprintf("%s's progression", sess.Username))
			printInfo(fmt.Sprintf("  count:       %d", out.Count))
			printInfo(fmt.Sprintf("  multiplier:  %d", out.Multiplier))
			printInfo(fmt.Sprintf("  best score:  %d", out.BestScore))
			printInfo(fmt.Sprintf("  click bonus: %d", out.TotalClickValue))
			return nil
		},
	}
}

func newInitCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize your progression",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if _, err := newClient(apiBase).InitProgression(ctx, sess.Token); err != nil {
				return err
			}
			printSuccess("Progression initialized.")
			return nil
		},
	}
}

func newResetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Prestige: spend clicks for a permanent multiplier",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Reset(ctx, sess.Token)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Reset complete. Multiplier is now x%d.", out.Multiplier))
			return nil
		},
	}
}

func newCostCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cost",
		Short: "Show the cost of your next reset",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).ResetCost(ctx, sess.Token)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("Next reset costs %d clicks.", out.Cost))
			return nil
		},
	}
}

func newTopCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "top",
		Short: "Show the global best score",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BestScore(ctx, sess.Token)
			if err != nil {
				return err
			}
			printHeading(fmt.Sprintf("Global best: %d (user #%d)", out.BestScore, out.UserID))
			return nil
		},
	}
}

func newShopCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "List items for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			items, err := newClient(apiBase).Items(ctx)
			if err != nil {
				return err
			}
			printHeading("Shop")
			for _, item := range items {
				printInfo(fmt.Sprintf("  #%-3d %-24s price=%-8d +%d/click (max %d)",
					item.ID, item.Name, item.Price, item.ClickValue, item.MaxQuantity))
			}
			return nil
		},
	}
}

func newInventoryCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inventory",
		Short: "Show what you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			rows, err := newClient(apiBase).Inventory(ctx, sess.Token)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				printInfo("Inventory is empty.")
				return nil
			}
			printHeading(fmt.Sprintf("%s's inventory", sess.Username))
			for _, row := range rows {
				printInfo(fmt.Sprintf("  %-24s x%d (+%d/click each)",
					row.Item.Name, row.Quantity, row.Item.ClickValue))
			}
			return nil
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <item-id>",
		Short: "Buy an item from the shop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || itemID <= 0 {
				return fmt.Errorf("invalid item id %q", args[0])
			}
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			_, err = newClient(apiBase).Buy(ctx, sess.Token, itemID)
			if err != nil {
				if offline(err) {
					if qerr := syncq.Push(syncq.Command{
						Method: "POST",
						Path:   "/v1/inventory/buy",
						Body:   map[string]any{"itemId": itemID},
					}); qerr != nil {
						return qerr
					}
					printWarn("API unreachable; purchase queued for `crush sync`.")
					return nil
				}
				return err
			}
			printSuccess("Purchase complete.")
			return nil
		},
	}
}

func newSyncCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay locally queued offline writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cl.LoadSession()
			if err != nil {
				return fmt.Errorf("login required: %w", err)
			}
			queue, err := syncq.Load()
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printInfo("Sync queue is empty.")
				return nil
			}
			client := newClient(apiBase)
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			remaining := make([]syncq.Command, 0, len(queue))
			replayed := 0
			for _, q := range queue {
				if _, err := client.Do(ctx, q.Method, q.Path, sess.Token, q.Body); err != nil {
					remaining = append(remaining, q)
					printError(fmt.Sprintf("Sync failed for %s %s: %v", q.Method, q.Path, err))
					continue
				}
				replayed++
			}
			if err := syncq.Save(remaining); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Sync complete: replayed=%d remaining=%d", replayed, len(remaining)))
			return nil
		},
	}
}
