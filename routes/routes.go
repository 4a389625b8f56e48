// Package routes names the application paths and decides where signed-out
// users are sent.
package routes

import (
	"net/http"
	"net/url"
	"strconv"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-workout-tracker/model"
	"github.com/gorilla/mux"
)

// Name identifies a route.
type Name string

const (
	Home          Name = "home"
	Signup        Name = "signup"
	Login         Name = "login"
	ResetPassword Name = "reset-password"
	Dashboard     Name = "dashboard"
	Profile       Name = "profile"
	Programs      Name = "programs"
	Program       Name = "program"
	Exercises     Name = "exercises"
)

// Route is a named path. Protected routes need a signed-in user; Redirect is
// where signed-out users go instead.
type Route struct {
	Name      Name
	Path      string
	Protected bool
	Redirect  Name
}

// All lists every route in navigation order.
var All = []Route{
	{Name: Home, Path: "/"},
	{Name: Signup, Path: "/auth/signup"},
	{Name: Login, Path: "/auth/login"},
	{Name: ResetPassword, Path: "/auth/reset-password"},
	{Name: Dashboard, Path: "/dashboard", Protected: true, Redirect: Login},
	{Name: Profile, Path: "/profile", Protected: true, Redirect: Login},
	{Name: Programs, Path: "/programs", Protected: true, Redirect: Login},
	{Name: Program, Path: "/programs/{id:[0-9]+}", Protected: true, Redirect: Login},
	{Name: Exercises, Path: "/exercises", Protected: true, Redirect: Login},
}

// Table matches paths against the named routes.
type Table struct {
	router *mux.Router
	byName map[Name]Route
}

// New builds the route table.
func New() *Table {
	t := &Table{router: mux.NewRouter(), byName: make(map[Name]Route, len(All))}
	for _, r := range All {
		t.router.Path(r.Path).Name(string(r.Name))
		t.byName[r.Name] = r
	}
	return t
}

// Lookup returns the route called name.
func (t *Table) Lookup(name Name) (Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// Match returns the route serving path and its variables.
func (t *Table) Match(path string) (Route, map[string]string, bool) {
	req := &http.Request{Method: http.MethodGet, URL: &url.URL{Path: path}}
	var m mux.RouteMatch
	if !t.router.Match(req, &m) || m.Route == nil {
		return Route{}, nil, false
	}
	vars := m.Vars
	if vars == nil {
		vars = map[string]string{}
	}
	r, ok := t.byName[Name(m.Route.GetName())]
	return r, vars, ok
}

// URL builds the path of name, filling in pairs of variable names and values.
func (t *Table) URL(name Name, pairs ...string) (string, error) {
	r := t.router.Get(string(name))
	if r == nil {
		return "", goerrors.New("unknown route "+string(name), goerrors.CategoryNotFound)
	}
	u, err := r.URLPath(pairs...)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryBadInput, "build route "+string(name))
	}
	return u.Path, nil
}

// ProgramPath is the detail path of a program.
func (t *Table) ProgramPath(id int64) string {
	p, err := t.URL(Program, "id", strconv.FormatInt(id, 10))
	if err != nil {
		return ""
	}
	return p
}

// Guard returns the path a user must be sent to before seeing route, or "" when
// the route may be shown.
func (t *Table) Guard(route Route, user *model.User) string {
	if !route.Protected || user != nil {
		return ""
	}
	target, ok := t.byName[route.Redirect]
	if !ok {
		target = t.byName[Login]
	}
	return target.Path
}

// GuardPath matches path and applies Guard. Unknown paths redirect home.
func (t *Table) GuardPath(path string, user *model.User) string {
	r, _, ok := t.Match(path)
	if !ok {
		return t.byName[Home].Path
	}
	return t.Guard(r, user)
}
