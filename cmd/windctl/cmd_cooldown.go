package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/smukkama/wind-alert-bot/internal/alarming"
	"github.com/smukkama/wind-alert-bot/internal/app"
)

var cooldownCmd = &cobra.Command{
	Use:   "cooldown",
	Short: "Inspect and reset alert cooldowns",
}

var cooldownListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the last alert time of every recipient",
	Args:  cobra.NoArgs,
	RunE:  runCooldownList,
}

var cooldownClearCmd = &cobra.Command{
	Use:   "clear <chat-id>",
	Short: "Forget a recipient's last alert so the next check may alert again",
	Args:  cobra.ExactArgs(1),
	RunE:  runCooldownClear,
}

func init() {
	rootCmd.AddCommand(cooldownCmd)
	cooldownCmd.AddCommand(cooldownListCmd)
	cooldownCmd.AddCommand(cooldownClearCmd)
}

func cooldownStore(cmd *cobra.Command) (*alarming.RedisCooldownStore, func(), error) {
	client, err := app.ConnectRedis(cmd.Context(), current.cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	store := alarming.NewRedisCooldownStore(client, app.CooldownTTL(current.cfg.Alert.Cooldown()))
	return store, func() { client.Close() }, nil
}

func runCooldownList(cmd *cobra.Command, args []string) error {
	store, closeFn, err := cooldownStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	last, err := store.All(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing cooldowns: %w", err)
	}
	printCooldowns(cmd.OutOrStdout(), last, current.cfg.Alert.Cooldown(), time.Now())
	return nil
}

func printCooldowns(w io.Writer, last map[int64]time.Time, cooldown time.Duration, now time.Time) {
	if len(last) == 0 {
		fmt.Fprintln(w, "no alerts recorded")
		return
	}

	ids := make([]int64, 0, len(last))
	for id := range last {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		at := last[id]
		state := "ready"
		if alarming.InCooldown(at, true, now, cooldown) {
			state = "cooling down until " + at.Add(cooldown).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", id, at.UTC().Format(time.RFC3339), state)
	}
}

func runCooldownClear(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q", args[0])
	}

	store, closeFn, err := cooldownStore(cmd)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.Clear(cmd.Context(), id); err != nil {
		return fmt.Errorf("clearing cooldown: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cooldown cleared for %d\n", id)
	return nil
}
