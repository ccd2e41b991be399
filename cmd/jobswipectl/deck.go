package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ivankudzin/jobswipe/internal/client"
	"github.com/ivankudzin/jobswipe/internal/deck"
	"github.com/ivankudzin/jobswipe/internal/domain/enums"
	"github.com/ivankudzin/jobswipe/internal/transport/http/dto"
)

const (
	actionLike  = "Interested"
	actionSuper = "Super interested"
	actionPass  = "Pass"
	actionUndo  = "Undo"
	actionQuit  = "Quit"
)

var (
	deckStatePath string
	deckPageSize  int
)

var deckCmd = &cobra.Command{
	Use:   "deck",
	Short: "Swipe through the job feed in the terminal",
	Long: `Loads the swipe feed and shows one job at a time. Decisions are sent
to the API as they are made; undo steps back one card so the next decision
on it overwrites the previous one. Liked, passed and super-liked jobs are
kept in a local file between runs.`,
	Args: cobra.NoArgs,
	RunE: runDeck,
}

var deckStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the locally saved deck classification",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := deckStore()
		if err != nil {
			return err
		}
		snap, err := store.Load()
		if err != nil {
			return err
		}
		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"Liked", "Super-liked", "Passed"},
			{fmt.Sprint(len(snap.Liked)), fmt.Sprint(len(snap.SuperLiked)), fmt.Sprint(len(snap.Passed))},
		}).Render()
	},
}

var deckResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the locally saved deck",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := deckStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		pterm.Success.Println("deck cleared")
		return nil
	},
}

func init() {
	deckCmd.PersistentFlags().StringVar(&deckStatePath, "state", "", "Deck state file (defaults to the user config dir)")
	deckCmd.Flags().IntVar(&deckPageSize, "limit", 20, "Jobs to load per page")
	deckCmd.AddCommand(deckStatsCmd, deckResetCmd)
}

func deckStore() (*deck.FileStore, error) {
	if deckStatePath != "" {
		return deck.NewFileStore(deckStatePath), nil
	}
	path, err := deck.DefaultPath()
	if err != nil {
		return nil, err
	}
	return deck.NewFileStore(path), nil
}

func runDeck(cmd *cobra.Command, args []string) error {
	if apiToken == "" {
		return errors.New("an access token is required: run jobswipectl login or pass --token")
	}
	ctx := cmd.Context()
	api := apiClient()

	store, err := deckStore()
	if err != nil {
		return err
	}
	snap, err := store.Load()
	if err != nil {
		return err
	}

	page, err := api.Feed(ctx, 1, deckPageSize)
	if err != nil {
		return err
	}
	jobs := make(map[int64]dto.JobResponse, len(page.Jobs))
	ids := make([]int64, 0, len(page.Jobs))
	for _, job := range page.Jobs {
		jobs[job.ID] = job
		ids = append(ids, job.ID)
	}

	d := deck.New(ids)
	d.Restore(snap)
	defer func() {
		if err := store.Save(d.Snapshot()); err != nil {
			pterm.Warning.Printf("save deck: %v\n", err)
		}
	}()

	if d.Len() == 0 {
		pterm.Info.Println("No new jobs right now. Check back later.")
		return nil
	}

	for {
		jobID, ok := d.Current()
		if !ok {
			pterm.Info.Printf("You went through all %d jobs on this page.\n", d.Len())
			return nil
		}
		renderJob(jobs[jobID], d)

		choice, err := pterm.DefaultInteractiveSelect.
			WithOptions([]string{actionLike, actionSuper, actionPass, actionUndo, actionQuit}).
			Show("Decision")
		if err != nil {
			return err
		}

		var dir enums.Direction
		switch choice {
		case actionQuit:
			return nil
		case actionUndo:
			if undone, ok := d.Undo(); ok {
				pterm.Info.Printf("Back to %q\n", jobs[undone].Title)
			} else {
				pterm.Warning.Println("Nothing to undo")
			}
			continue
		case actionLike:
			dir = enums.DirectionInterested
		case actionSuper:
			dir = enums.DirectionSuperInterested
		default:
			dir = enums.DirectionPass
		}

		res, err := api.Swipe(ctx, jobID, string(dir))
		switch {
		case client.IsCode(err, "QUOTA_EXCEEDED"):
			var apiErr *client.APIError
			errors.As(err, &apiErr)
			pterm.Warning.Println(apiErr.Message)
			return nil
		case client.IsCode(err, "TOO_FAST"):
			var apiErr *client.APIError
			errors.As(err, &apiErr)
			pterm.Warning.Printf("Slow down, try again in %ds\n", apiErr.RetryAfterSec)
			continue
		case err != nil:
			return err
		}

		d.Swipe(dir)
		if res.Matched {
			pterm.Success.Printf("It's a match! (match #%d)\n", res.MatchID)
		}
		if res.SwipesRemaining != nil {
			pterm.Info.Printf("%d swipes left this period\n", *res.SwipesRemaining)
		}
	}
}

func renderJob(job dto.JobResponse, d *deck.Deck) {
	var body strings.Builder
	fmt.Fprintf(&body, "%s\n", pterm.Bold.Sprint(job.CompanyName))
	fmt.Fprintf(&body, "%s · %s · %s\n", job.Location, job.LocationType, job.EmploymentType)
	if job.MinSalary != nil || job.MaxSalary != nil {
		fmt.Fprintf(&body, "%s %s\n", salary(job.MinSalary, job.MaxSalary), job.Currency)
	}
	if len(job.Skills) > 0 {
		fmt.Fprintf(&body, "%s\n", pterm.LightCyan(strings.Join(job.Skills, ", ")))
	}
	if job.MatchScore != nil {
		fmt.Fprintf(&body, "Fit: %d%%\n", *job.MatchScore)
	}
	desc := job.Description
	if len([]rune(desc)) > 280 {
		desc = string([]rune(desc)[:280]) + "…"
	}
	body.WriteString("\n" + desc)

	title := fmt.Sprintf("%s  [%d/%d]", job.Title, d.Index()+1, d.Len())
	pterm.DefaultBox.WithTitle(title).Println(body.String())
}

func salary(minSalary, maxSalary *int) string {
	switch {
	case minSalary != nil && maxSalary != nil:
		return fmt.Sprintf("%d–%d", *minSalary, *maxSalary)
	case minSalary != nil:
		return fmt.Sprintf("from %d", *minSalary)
	default:
		return fmt.Sprintf("up to %d", *maxSalary)
	}
}
