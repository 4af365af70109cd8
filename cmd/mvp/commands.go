package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"mvp/internal/models"
	"mvp/internal/service"
	"mvp/internal/viewstate"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "sign in with email and password", runLogin},
	{"register", "create an account", runRegister},
	{"onboard", "complete the profile after the first sign-in", runOnboard},
	{"whoami", "show the current session", runWhoami},
	{"feed", "list posts", runFeed},
	{"post", "create a post", runPost},
	{"like", "like a post", runLike},
	{"events", "list events by month", runEvents},
	{"event", "create an event", runEvent},
	{"comments", "show the comment thread of a post", runComments},
	{"comment", "comment on a post or reply to a comment", runComment},
	{"like-comment", "like a comment", runLikeComment},
	{"profile", "show or edit the profile", runProfile},
	{"signout", "sign out", runSignOut},
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: mvp <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-13s %s\n", c.name, c.summary)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// stateError turns the error text of a screen state into an error.
func stateError(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

func readImage(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return data, nil
}

func formatTime(ts *models.Timestamp) string {
	if ts == nil {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("login", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := viewstate.NewLoginController(a.auth, a.profiles, a.tokens, a.session, a.loop)
	c.Login(ctx, *email, *password)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}

	s := a.session.State()
	fmt.Fprintf(a.out, "Signed in as %s\n", s.Username)
	if !s.Onboarded {
		fmt.Fprintln(a.out, `Complete your profile with "mvp onboard".`)
	}
	return nil
}

func runRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("register", a.out)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "password, at least 6 characters")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := viewstate.NewRegisterController(a.auth, a.tokens, a.session, a.loop)
	c.Register(ctx, *email, *password)
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	if st.PendingConfirmation {
		fmt.Fprintln(a.out, "Registered. Confirm your email address, then sign in.")
		return nil
	}
	fmt.Fprintf(a.out, "Registered and signed in as %s\n", a.session.State().Username)
	fmt.Fprintln(a.out, `Complete your profile with "mvp onboard".`)
	return nil
}

func runOnboard(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("onboard", a.out)
	name := fs.String("name", "", "display name")
	username := fs.String("username", "", "username")
	interests := fs.String("interests", "", "comma separated interests: "+strings.Join(models.InterestOptions, ","))
	imagePath := fs.String("image", "", "profile image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}
	image, err := readImage(*imagePath)
	if err != nil {
		return err
	}

	c := viewstate.NewOnboardingController(a.profiles, a.session, a.loop)
	for _, interest := range strings.Split(*interests, ",") {
		if interest = strings.TrimSpace(interest); interest != "" {
			c.Toggle(interest)
		}
	}
	c.Complete(ctx, *name, *username, image)
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Welcome, %s! Interests: %s\n", a.session.State().Username, strings.Join(st.Interests, ", "))
	return nil
}

func runWhoami(_ context.Context, a *app, _ []string) error {
	s := a.session.State()
	if !s.LoggedIn {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "User:      %s\n", s.Username)
	fmt.Fprintf(a.out, "ID:        %s\n", s.UserID)
	fmt.Fprintf(a.out, "Onboarded: %t\n", s.Onboarded)
	return nil
}

func runFeed(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("feed", a.out)
	social := fs.Bool("social", false, "read the joined social feed")
	search := fs.String("search", "", "only show posts whose message or author matches")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := viewstate.NewFeedController(a.feed, a.likes, a.session, a.loop, *social)
	c.Load(ctx)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}
	c.LoadLikeCounts(ctx)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}

	posts := c.Sorted()
	if *search != "" {
		posts = c.Filter(*search)
	}
	if len(posts) == 0 {
		fmt.Fprintln(a.out, "No posts")
		return nil
	}
	for _, p := range posts {
		author := p.Username()
		if author == "" {
			author = p.UserID
		}
		fmt.Fprintf(a.out, "%s  %s  @%s  ♥ %d\n", p.ID, formatTime(p.CreatedAt), author, c.LikeCount(p.ID))
		if msg := models.Deref(p.Message); msg != "" {
			fmt.Fprintf(a.out, "    %s\n", msg)
		}
		if url := models.Deref(p.MediaURL); url != "" {
			fmt.Fprintf(a.out, "    [image] %s\n", url)
		}
	}
	return nil
}

func runPost(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("post", a.out)
	text := fs.String("text", "", "message")
	imagePath := fs.String("image", "", "image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}
	image, err := readImage(*imagePath)
	if err != nil {
		return err
	}

	c := viewstate.NewFeedController(a.feed, a.likes, a.session, a.loop, false)
	c.Create(ctx, *text, image)
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	if len(st.Posts) > 0 {
		fmt.Fprintf(a.out, "Posted %s\n", st.Posts[len(st.Posts)-1].ID)
	}
	return nil
}

func runLike(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mvp like <post-id>")
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}
	postID := args[0]

	c := viewstate.NewFeedController(a.feed, a.likes, a.session, a.loop, false)
	c.Like(ctx, postID)
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	if st.Notice != "" {
		fmt.Fprintln(a.out, st.Notice)
	}
	n, err := a.likes.CountPostLikes(ctx, postID)
	if err != nil {
		return errors.New(models.UserMessage(err))
	}
	fmt.Fprintf(a.out, "♥ %d\n", n)
	return nil
}

func runEvents(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("events", a.out)
	search := fs.String("search", "", "only show events whose title matches")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c := viewstate.NewEventsController(a.events, a.session, a.loop)
	c.Load(ctx)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}

	entries := c.Timeline()
	if *search != "" {
		entries = c.Filter(*search)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No events")
		return nil
	}
	for _, e := range entries {
		if e.ShowHeader {
			fmt.Fprintf(a.out, "== %s ==\n", e.MonthKey)
		}
		ev := e.Event
		line := fmt.Sprintf("%s  %s  %s", ev.ID, formatTime(ev.EventDate), ev.Title)
		if loc := models.Deref(ev.Location); loc != "" {
			line += "  @ " + loc
		}
		if ev.Price != nil {
			line += fmt.Sprintf("  %.2f", *ev.Price)
		}
		fmt.Fprintln(a.out, line)
	}
	return nil
}

func runEvent(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("event", a.out)
	title := fs.String("title", "", "event title")
	description := fs.String("description", "", "description")
	location := fs.String("location", "", "location")
	date := fs.String("date", "", "start time, RFC 3339")
	price := fs.String("price", "", "ticket price")
	ticketInfo := fs.String("ticket-info", "", "ticket information")
	imagePath := fs.String("image", "", "event image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}

	in := viewstate.EventInput{
		Title:       *title,
		Description: *description,
		Location:    *location,
		TicketInfo:  *ticketInfo,
	}
	if *date != "" {
		t, err := time.Parse(time.RFC3339, *date)
		if err != nil {
			return fmt.Errorf("invalid -date: %w", err)
		}
		in.Date = &t
	}
	if *price != "" {
		p, err := strconv.ParseFloat(*price, 64)
		if err != nil {
			return fmt.Errorf("invalid -price: %w", err)
		}
		in.Price = &p
	}
	image, err := readImage(*imagePath)
	if err != nil {
		return err
	}
	in.Image = image

	c := viewstate.NewEventsController(a.events, a.session, a.loop)
	c.Create(ctx, in)
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	if len(st.Events) > 0 {
		fmt.Fprintf(a.out, "Created event %s\n", st.Events[len(st.Events)-1].ID)
	}
	return nil
}

func runComments(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("comments", a.out)
	depth := fs.Int("depth", 1, fmt.Sprintf("reply levels to fetch (0-%d)", service.MaxThreadDepth))
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: mvp comments [-depth n] <post-id>")
	}

	threads, err := a.comments.ListThread(ctx, fs.Arg(0), *depth)
	if err != nil {
		return errors.New(models.UserMessage(err))
	}
	if len(threads) == 0 {
		fmt.Fprintln(a.out, "No comments")
		return nil
	}
	return printThreads(ctx, a, threads, 0)
}

func printThreads(ctx context.Context, a *app, threads []models.CommentThread, level int) error {
	indent := strings.Repeat("    ", level)
	for _, t := range threads {
		n, err := a.likes.CountCommentLikes(ctx, t.Comment.ID)
		if err != nil {
			return errors.New(models.UserMessage(err))
		}
		fmt.Fprintf(a.out, "%s%s  %s  ♥ %d\n", indent, t.Comment.ID, formatTime(t.Comment.CreatedAt), n)
		fmt.Fprintf(a.out, "%s    %s\n", indent, t.Comment.Comment)
		if err := printThreads(ctx, a, t.Replies, level+1); err != nil {
			return err
		}
	}
	return nil
}

func runComment(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("comment", a.out)
	text := fs.String("text", "", "comment text")
	replyTo := fs.String("reply-to", "", "id of the comment to answer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: mvp comment -text <text> [-reply-to id] <post-id>")
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}

	c := viewstate.NewCommentsController(a.comments, a.likes, a.session, a.loop)
	c.Load(ctx, fs.Arg(0))
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}

	if *replyTo != "" {
		c.Reply(ctx, *replyTo, *text)
	} else {
		c.Add(ctx, *text)
	}
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}

	created := st.Comments
	if *replyTo != "" {
		created = st.Replies[*replyTo]
	}
	if len(created) > 0 {
		fmt.Fprintf(a.out, "Commented %s\n", created[len(created)-1].ID)
	}
	return nil
}

func runLikeComment(ctx context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: mvp like-comment <comment-id>")
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}

	c := viewstate.NewCommentsController(a.comments, a.likes, a.session, a.loop)
	c.Like(ctx, args[0])
	a.settle()
	st := c.Snapshot()
	if err := stateError(st.Error); err != nil {
		return err
	}
	if st.Notice != "" {
		fmt.Fprintln(a.out, st.Notice)
	}
	c.RefreshLikeCount(ctx, args[0])
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "♥ %d\n", c.LikeCount(args[0]))
	return nil
}

func runProfile(ctx context.Context, a *app, args []string) error {
	fs := newFlagSet("profile", a.out)
	name := fs.String("name", "", "new display name")
	username := fs.String("username", "", "new username")
	imagePath := fs.String("image", "", "new profile image file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.requireSignIn(); err != nil {
		return err
	}

	c := viewstate.NewProfileController(a.profiles, a.auth, a.tokens, a.session, a.loop)
	c.Load(ctx)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}

	if *name != "" || *username != "" || *imagePath != "" {
		current := c.Snapshot().Profile
		newName, newUsername := *name, *username
		if newName == "" {
			newName = models.Deref(current.Name)
		}
		if newUsername == "" {
			newUsername = current.Username
		}
		image, err := readImage(*imagePath)
		if err != nil {
			return err
		}
		c.Save(ctx, newName, newUsername, image)
		a.settle()
		if err := stateError(c.Snapshot().Error); err != nil {
			return err
		}
	}

	p := c.Snapshot().Profile
	fmt.Fprintf(a.out, "Username:  %s\n", p.Username)
	fmt.Fprintf(a.out, "Name:      %s\n", models.Deref(p.Name))
	fmt.Fprintf(a.out, "Email:     %s\n", p.Email)
	fmt.Fprintf(a.out, "Interests: %s\n", strings.Join(p.Interests, ", "))
	if img := models.Deref(p.ProfileImage); img != "" {
		fmt.Fprintf(a.out, "Image:     %s\n", img)
	}
	return nil
}

func runSignOut(ctx context.Context, a *app, _ []string) error {
	c := viewstate.NewProfileController(a.profiles, a.auth, a.tokens, a.session, a.loop)
	c.SignOut(ctx)
	a.settle()
	if err := stateError(c.Snapshot().Error); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}
