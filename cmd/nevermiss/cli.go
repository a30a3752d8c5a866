package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/zealmehta21/nevermiss/internal/errors"
	"github.com/zealmehta21/nevermiss/internal/notify"
	"github.com/zealmehta21/nevermiss/internal/ops"
	"github.com/zealmehta21/nevermiss/internal/planner"
	"github.com/zealmehta21/nevermiss/internal/task"
	"github.com/zealmehta21/nevermiss/internal/timezone"
	"github.com/zealmehta21/nevermiss/internal/web"
)

// EnvUser supplies the default --user for every command.
const EnvUser = "NEVERMISS_USER"

// maxStdinBytes bounds piped submission text.
const maxStdinBytes = 64 << 10

// newCLIApp creates the CLI application with all commands.
// d may be nil when only help or version output is needed.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "nevermiss",
		Usage:   "Turn voice and text into an organized task list",
		Version: Version,
		Commands: []*cli.Command{
			submitCmd(d),
			commandCmd(d),
			transcribeCmd(d),
			addCmd(d),
			listCmd(d),
			showCmd(d),
			updateCmd(d),
			completeCmd(d),
			snoozeCmd(d),
			deleteCmd(d),
			purgeCmd(d),
			transcriptsCmd(d),
			userCmd(d),
			digestCmd(d),
			authCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func userFlag() cli.Flag {
	return &cli.StringFlag{Name: "user", Aliases: []string{"u"}, EnvVars: []string{EnvUser}, Usage: "User id"}
}

func timezoneFlag() cli.Flag {
	return &cli.StringFlag{Name: "timezone", Aliases: []string{"tz"}, Usage: "IANA timezone for this call (defaults to the user's)"}
}

// submitCmd creates the submit command.
func submitCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Plan free text into tasks (text from args or stdin)",
		ArgsUsage: "[text]",
		Flags:     []cli.Flag{userFlag(), timezoneFlag()},
		Action: func(c *cli.Context) error {
			return runSubmission(c, d, planner.ModePlan)
		},
	}
}

// commandCmd creates the command command.
func commandCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "command",
		Usage:     "Apply one short command to existing tasks (text from args or stdin)",
		ArgsUsage: "[text]",
		Flags:     []cli.Flag{userFlag(), timezoneFlag()},
		Action: func(c *cli.Context) error {
			return runSubmission(c, d, planner.ModeCommand)
		},
	}
}

func runSubmission(c *cli.Context, d *deps, mode planner.Mode) error {
	text, err := argsOrStdin(c)
	if err != nil {
		return outputError(err)
	}
	if d.pipeline == nil {
		return outputError(errors.NewConfig("no language model configured (set GEMINI_API_KEY)"))
	}
	user, err := ops.ResolveUser(c.Context, d.db, c.String("user"), c.String("timezone"), d.cfg.Timezone)
	if err != nil {
		return outputError(err)
	}

	out, err := d.pipeline.Submit(c.Context, planner.Submission{
		UserID:   user.ID,
		Email:    user.Email,
		Timezone: user.Timezone,
		Text:     text,
		Mode:     mode,
		Source:   task.SourceText,
	})
	if err != nil {
		return outputError(err)
	}
	return outputJSON(out)
}

// transcribeCmd creates the transcribe command.
func transcribeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "transcribe",
		Usage:     "Transcribe an audio file, optionally submitting the transcript",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			userFlag(),
			timezoneFlag(),
			&cli.StringFlag{Name: "mime", Usage: "Audio MIME type (defaults from the file extension)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "Submit the transcript: plan|command"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return outputError(errors.NewInvalidRequest("audio file path is required"))
			}
			if d.pipeline == nil {
				return outputError(errors.NewConfig("no language model configured (set GEMINI_API_KEY)"))
			}
			path := c.Args().First()
			audio, err := os.ReadFile(path)
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("cannot read %s: %v", path, err)))
			}
			mimeType := c.String("mime")
			if mimeType == "" {
				mimeType = audioType(path)
			}

			if !c.IsSet("mode") {
				text, err := d.pipeline.Transcribe(c.Context, audio, mimeType)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(map[string]string{"text": text})
			}

			mode, ok := planner.ParseMode(c.String("mode"))
			if !ok {
				return outputError(errors.NewInvalidRequest("mode must be plan or command"))
			}
			user, err := ops.ResolveUser(c.Context, d.db, c.String("user"), c.String("timezone"), d.cfg.Timezone)
			if err != nil {
				return outputError(err)
			}
			out, err := d.pipeline.SubmitAudio(c.Context, planner.AudioSubmission{
				UserID:   user.ID,
				Email:    user.Email,
				Timezone: user.Timezone,
				Mode:     mode,
				Audio:    audio,
				MimeType: mimeType,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(out)
		},
	}
}

// addCmd creates the add command.
func addCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Add a task directly",
		Flags: []cli.Flag{
			userFlag(),
			timezoneFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Task title", Required: true},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Task description"},
			&cli.StringFlag{Name: "due", Usage: "Due date, e.g. 2025-07-01T09:00:00"},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: "medium", Usage: "p0|high|medium|low"},
			&cli.StringFlag{Name: "reminder", Usage: "Reminder time"},
		},
		Action: func(c *cli.Context) error {
			zone, err := userZone(c, d)
			if err != nil {
				return outputError(err)
			}
			due, err := stampFlag(c, zone, "due", "due_date")
			if err != nil {
				return outputError(err)
			}
			reminder, err := stampFlag(c, zone, "reminder", "reminder_time")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Create(c.Context, d.db, ops.CreateInput{
				UserID:       c.String("user"),
				Title:        c.String("title"),
				Description:  c.String("description"),
				DueDate:      due,
				Priority:     c.String("priority"),
				ReminderTime: reminder,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List tasks",
		Flags: []cli.Flag{
			userFlag(),
			timezoneFlag(),
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "pending|completed|snoozed|deleted"},
			&cli.StringFlag{Name: "view", Usage: "today|week|upcoming"},
			&cli.BoolFlag{Name: "include-completed", Usage: "Include completed tasks"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted tasks"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 50, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListInput{
				UserID:           c.String("user"),
				Status:           c.String("status"),
				View:             c.String("view"),
				IncludeCompleted: c.Bool("include-completed"),
				IncludeDeleted:   c.Bool("include-deleted"),
				Limit:            c.Int("limit"),
				Offset:           c.Int("offset"),
			}
			if input.View != "" {
				zone, err := userZone(c, d)
				if err != nil {
					return outputError(err)
				}
				input.Now = zone.Now()
				input.Location = zone.Location()
			}

			output, err := ops.List(c.Context, d.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show one task",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			userFlag(),
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted tasks"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(c.Context, d.db, ops.FetchInput{
				UserID:         c.String("user"),
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update fields of a task (an empty value clears optional dates)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			userFlag(),
			timezoneFlag(),
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "New description"},
			&cli.StringFlag{Name: "due", Usage: "New due date"},
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "p0|high|medium|low"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "pending|completed|snoozed"},
			&cli.StringFlag{Name: "snooze-until", Usage: "Snooze until"},
			&cli.StringFlag{Name: "reminder", Usage: "Reminder time"},
		},
		Action: func(c *cli.Context) error {
			zone, err := userZone(c, d)
			if err != nil {
				return outputError(err)
			}

			input := ops.UpdateInput{
				UserID:      c.String("user"),
				ID:          c.Args().First(),
				Title:       optionalFlag(c, "title"),
				Description: optionalFlag(c, "description"),
				Priority:    optionalFlag(c, "priority"),
				Status:      optionalFlag(c, "status"),
			}
			if input.DueDate, err = stampFlag(c, zone, "due", "due_date"); err != nil {
				return outputError(err)
			}
			if input.SnoozeUntil, err = stampFlag(c, zone, "snooze-until", "snooze_until"); err != nil {
				return outputError(err)
			}
			if input.ReminderTime, err = stampFlag(c, zone, "reminder", "reminder_time"); err != nil {
				return outputError(err)
			}

			output, err := ops.Update(c.Context, d.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// completeCmd creates the complete command.
func completeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a task completed",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Complete(c.Context, d.db, ops.CompleteInput{
				UserID: c.String("user"),
				ID:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// snoozeCmd creates the snooze command.
func snoozeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "snooze",
		Usage:     "Hide a task until a given time",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			userFlag(),
			timezoneFlag(),
			&cli.StringFlag{Name: "until", Usage: "Snooze until, e.g. 2025-07-02T08:00:00", Required: true},
		},
		Action: func(c *cli.Context) error {
			zone, err := userZone(c, d)
			if err != nil {
				return outputError(err)
			}
			until, err := stampFlag(c, zone, "until", "snooze_until")
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Snooze(c.Context, d.db, ops.SnoozeInput{
				UserID: c.String("user"),
				ID:     c.Args().First(),
				Until:  *until,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a task",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{userFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, d.db, ops.DeleteInput{
				UserID: c.String("user"),
				ID:     c.Args().First(),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Only purge this user's tasks"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{UserID: c.String("user")}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, d.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// transcriptsCmd creates the transcripts command.
func transcriptsCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "transcripts",
		Usage: "List saved submissions, newest first",
		Flags: []cli.Flag{
			userFlag(),
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Pagination offset"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListTranscripts(c.Context, d.db, ops.ListTranscriptsInput{
				UserID: c.String("user"),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// userCmd creates the user command and its subcommands.
func userCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage registered users",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Register a user or change their email and timezone",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "User id", Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Notification address"},
					&cli.StringFlag{Name: "timezone", Aliases: []string{"tz"}, Usage: "IANA timezone (defaults to config timezone)"},
				},
				Action: func(c *cli.Context) error {
					zone := c.String("timezone")
					if zone == "" {
						zone = d.cfg.Timezone
					}
					output, err := ops.RegisterUser(c.Context, d.db, ops.RegisterUserInput{
						ID:       c.String("id"),
						Email:    c.String("email"),
						Timezone: zone,
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "show",
				Usage:     "Show a registered user",
				ArgsUsage: "<id>",
				Action: func(c *cli.Context) error {
					output, err := ops.GetUser(c.Context, d.db, c.Args().First())
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List registered users",
				Action: func(c *cli.Context) error {
					output, err := ops.ListUsers(c.Context, d.db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// digestCmd creates the digest command.
func digestCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "digest",
		Usage: "Mail every registered user the tasks due today",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Only this user"},
		},
		Action: func(c *cli.Context) error {
			var users []task.User
			if id := c.String("user"); id != "" {
				u, err := ops.GetUser(c.Context, d.db, id)
				if err != nil {
					return outputError(err)
				}
				users = []task.User{*u}
			} else {
				all, err := ops.ListUsers(c.Context, d.db)
				if err != nil {
					return outputError(err)
				}
				users = all
			}

			report := notify.SendDaily(c.Context, users, ops.NewStore(d.db), d.notifier, time.Now(), log.Default())
			return outputJSON(report)
		},
	}
}

// authCmd creates the auth command.
func authCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize external services",
		Subcommands: []*cli.Command{
			{
				Name:  "gmail",
				Usage: "Run the browser consent flow and save the Gmail token",
				Action: func(c *cli.Context) error {
					oc, err := notify.LoadOAuthConfig(d.cfg.Email.CredentialsFile)
					if err != nil {
						return outputError(err)
					}
					if err := notify.Authorize(c.Context, oc, d.cfg.Email.TokenFile, os.Stderr); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]string{"token_file": d.cfg.Email.TokenFile})
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the JSON HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Usage: "Bind address (default from config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port to listen on (default from config)"},
		},
		Action: func(c *cli.Context) error {
			bind := d.cfg.HTTPBind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := d.cfg.HTTPPort
			if c.IsSet("port") {
				port = c.Int("port")
			}
			srv := web.NewServer(d.db, d.cfg, d.pipeline, Version, bind, port)
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if nmErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", nmErr.Code, nmErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// userZone returns the normalizer for the --user's effective timezone.
func userZone(c *cli.Context, d *deps) (*timezone.Normalizer, error) {
	u, err := ops.ResolveUser(c.Context, d.db, c.String("user"), c.String("timezone"), d.cfg.Timezone)
	if err != nil {
		return nil, err
	}
	return timezone.New(u.Timezone)
}

// stampFlag normalizes a datetime flag when it was given; unset flags stay nil.
func stampFlag(c *cli.Context, zone *timezone.Normalizer, flag, field string) (*string, error) {
	if !c.IsSet(flag) {
		return nil, nil
	}
	v := c.String(flag)
	return zone.Stamp(field, &v)
}

// optionalFlag returns a pointer to the flag value when it was given.
func optionalFlag(c *cli.Context, name string) *string {
	if !c.IsSet(name) {
		return nil
	}
	v := c.String(name)
	return &v
}

// argsOrStdin joins the positional args, or reads stdin when none were given.
func argsOrStdin(c *cli.Context) (string, error) {
	if c.NArg() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	if !stdinHasData() {
		return "", errors.NewInvalidRequest("text must be given as arguments or piped via stdin")
	}
	text, err := readStdin(maxStdinBytes)
	if err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	return text, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin, failing when it exceeds limit bytes.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// audioTypes covers recorder formats the mime package may not know.
var audioTypes = map[string]string{
	".wav":  "audio/wav",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".webm": "audio/webm",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".aac":  "audio/aac",
}

// audioType guesses a MIME type from the file extension.
func audioType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		mediaType, _, err := mime.ParseMediaType(t)
		if err == nil {
			return mediaType
		}
	}
	return ""
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
