package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docopt/docopt-go"

	"snapgram-sync/internal/application/commands"
	"snapgram-sync/internal/application/search"
	"snapgram-sync/internal/di"
	"snapgram-sync/internal/domain/post"
	"snapgram-sync/internal/domain/query"
	"snapgram-sync/internal/domain/user"
	"snapgram-sync/internal/infrastructure/persistence"
	"snapgram-sync/internal/infrastructure/persistence/memory"
)

var errNoSession = errors.New("not signed in: pass --email and --password, or --demo")

// app runs one command against a container, writing results to out.
type app struct {
	c       *di.Container
	out     io.Writer
	timeout time.Duration
	now     func() time.Time
}

func newApp(c *di.Container, out io.Writer) *app {
	return &app{c: c, out: out, timeout: c.Config.Backend.CallTimeout, now: time.Now}
}

// call bounds one command step by the configured backend timeout.
func (a *app) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *app) signIn(ctx context.Context, opts docopt.Opts) error {
	email, _ := opts.String("--email")
	password, _ := opts.String("--password")
	if flag(opts, "--demo") {
		if a.c.Config.Backend.Driver != persistence.DriverMemory {
			return errors.New("--demo needs the memory backend")
		}
		creators, err := a.getCreators(ctx, 1)
		if err != nil {
			return err
		}
		if len(creators) == 0 {
			return errors.New("no seeded creators to sign in as")
		}
		email, password = creators[0].Email, memory.DemoPassword
	}
	if email == "" {
		return nil
	}
	return a.login(ctx, email, password)
}

func (a *app) login(ctx context.Context, email, password string) error {
	ctx, cancel := a.call(ctx)
	defer cancel()
	_, err := a.c.Coordinator.SignIn(ctx, commands.SignInInput{Email: email, Password: password}).Wait(ctx)
	if err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	return nil
}

func (a *app) feed(ctx context.Context, pages int) error {
	for i := 0; i < pages && (i == 0 || a.c.Feed.HasNextPage()); i++ {
		pctx, cancel := a.call(ctx)
		err := a.c.Feed.FetchNextPage(pctx)
		cancel()
		if err != nil {
			return err
		}
	}
	a.printPosts(a.c.Feed.Items())
	if a.c.Feed.HasNextPage() {
		fmt.Fprintf(a.out, "-- more after %s\n", a.c.Feed.Cursor())
	} else {
		fmt.Fprintln(a.out, "-- end of feed")
	}
	return nil
}

func (a *app) recent(ctx context.Context) error {
	posts, err := get[[]*post.Post](ctx, a, query.RecentPosts())
	if err != nil {
		return err
	}
	a.printPosts(posts)
	return nil
}

func (a *app) creators(ctx context.Context, limit int) error {
	users, err := a.getCreators(ctx, limit)
	if err != nil {
		return err
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "%-3s %-24s @%s\n", user.Initials(u.Name), u.Name, u.Username)
	}
	return nil
}

func (a *app) getCreators(ctx context.Context, limit int) ([]*user.User, error) {
	return get[[]*user.User](ctx, a, query.CreatorUsers(limit))
}

// search feeds term through the debounced query and waits for it to settle.
func (a *app) search(ctx context.Context, term string) error {
	settled := a.settled()
	a.c.Search.SetTerm(term)
	ctx, cancel := a.call(ctx)
	defer cancel()
	select {
	case s := <-settled:
		if s.Err != nil {
			return s.Err
		}
		a.printPosts(s.Results)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// interactiveSearch treats every input line as a keystroke burst. Only terms
// left alone for the debounce window are searched.
func (a *app) interactiveSearch(ctx context.Context, in io.Reader) error {
	a.c.Search.Subscribe(func(s search.Snapshot) {
		switch s.Phase {
		case search.PhaseResult:
			fmt.Fprintf(a.out, "%q: %d posts\n", s.Term, len(s.Results))
			a.printPosts(s.Results)
		case search.PhaseError:
			fmt.Fprintf(a.out, "%q: %v\n", s.Term, s.Err)
		}
	})
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		a.c.Search.SetTerm(strings.TrimSpace(scanner.Text()))
	}
	a.c.Search.Wait()
	return scanner.Err()
}

// settled returns a channel receiving the first result or error snapshot.
func (a *app) settled() <-chan search.Snapshot {
	ch := make(chan search.Snapshot, 1)
	a.c.Search.Subscribe(func(s search.Snapshot) {
		if s.Phase != search.PhaseResult && s.Phase != search.PhaseError {
			return
		}
		select {
		case ch <- s:
		default:
		}
	})
	return ch
}

func (a *app) show(ctx context.Context, id string) error {
	p, err := get[*post.Post](ctx, a, query.PostByID(id))
	if err != nil {
		return err
	}
	a.printPost(p)
	if p.Location != "" {
		fmt.Fprintf(a.out, "    at %s\n", p.Location)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(a.out, "    #%s\n", strings.Join(p.Tags, " #"))
	}
	fmt.Fprintf(a.out, "    %s\n", p.ImageURL)
	return nil
}

func (a *app) like(ctx context.Context, id string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	p, err := get[*post.Post](ctx, a, query.PostByID(id))
	if err != nil {
		return err
	}
	likers, liked := post.ToggleLike(p.Likers, me.ID)

	ctx, cancel := a.call(ctx)
	defer cancel()
	updated, err := a.c.Coordinator.LikePost(ctx, commands.LikePostInput{
		PostID: id,
		UserID: me.ID,
		Likers: likers,
		Liked:  liked,
	}).Wait(ctx)
	if err != nil {
		return err
	}
	verb := "unliked"
	if liked {
		verb = "liked"
	}
	fmt.Fprintf(a.out, "%s %s (%d likes)\n", verb, id, len(updated.Likers))
	return nil
}

func (a *app) save(ctx context.Context, id string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	if me.HasSaved(id) {
		fmt.Fprintf(a.out, "already saved %s\n", id)
		return nil
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	rec, err := a.c.Coordinator.SavePost(ctx, commands.SavePostInput{UserID: me.ID, PostID: id}).Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "saved %s as %s\n", id, rec.ID)
	return nil
}

func (a *app) unsave(ctx context.Context, id string) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	rec, ok := me.SaveRecordFor(id)
	if !ok {
		fmt.Fprintf(a.out, "%s is not saved\n", id)
		return nil
	}
	ctx, cancel := a.call(ctx)
	defer cancel()
	if _, err := a.c.Coordinator.UnsavePost(ctx, commands.UnsavePostInput{SaveRecordID: rec.ID}).Wait(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "unsaved %s\n", id)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	me, err := a.currentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (@%s) <%s>\n", me.Name, me.Username, me.Email)
	fmt.Fprintf(a.out, "liked %d, saved %d\n", len(me.LikedPostIDs), len(me.Saves))
	return nil
}

func (a *app) currentUser(ctx context.Context) (*user.User, error) {
	me, err := get[*user.User](ctx, a, query.CurrentUser())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNoSession, err)
	}
	return me, nil
}

func (a *app) printPosts(posts []*post.Post) {
	for _, p := range posts {
		a.printPost(p)
	}
}

func (a *app) printPost(p *post.Post) {
	fmt.Fprintf(a.out, "%s  %-8s  %3d♥  %s\n", p.ID, post.FormatRelative(p.CreatedAt, a.now()), len(p.Likers), p.Caption)
}

// get reads d through the query service within the call timeout.
func get[T any](ctx context.Context, a *app, d query.Descriptor) (T, error) {
	var zero T
	ctx, cancel := a.call(ctx)
	defer cancel()
	v, err := a.c.Queries.Get(ctx, d)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%s: unexpected result %T", d, v)
	}
	return t, nil
}
