package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/autograder/repository/core"
	"github.com/autograder/repository/core/auth"
)

// RollbarLogger writes to a std logger and reports to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// fields merges every map argument into one set of Rollbar extras.
type fields map[string]interface{}

func (f fields) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return strings.Join(pairs, " ")
}

func roles(p auth.Principal) string {
	var r []string
	if p.IsSuperuser {
		r = append(r, "superuser")
	}
	if p.IsTeacher {
		r = append(r, "teacher")
	}
	if p.IsStudent {
		r = append(r, "student")
	}
	return strings.Join(r, ",")
}

// split sorts args into the first principal, the merged fields and everything else.
// expected fmt: msg | error, map[string]interface{}, auth.Principal
func split(args []interface{}) (p *auth.Principal, flds fields, rest []interface{}) {
	for _, arg := range args {
		switch a := arg.(type) {
		case auth.Principal:
			if p == nil { // only one person per item
				p = &a
			}
		case map[string]interface{}:
			if flds == nil {
				flds = make(fields, len(a))
			}
			for k, v := range a {
				flds[k] = v
			}
		default:
			rest = append(rest, arg)
		}
	}
	return p, flds, rest
}

func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	p, flds, rest := split(args)

	newArgs := make([]interface{}, 0, len(rest)+2)
	newArgs = append(newArgs, msg)
	newArgs = append(newArgs, rest...)

	if p == nil {
		rollbar.ClearPerson()
	} else {
		rollbar.SetPerson(p.UserID.String(), "", p.Email)
		if r := roles(*p); r != "" {
			if flds == nil {
				flds = fields{}
			}
			flds["principal_roles"] = r
		}
	}
	if flds != nil {
		newArgs = append(newArgs, map[string]interface{}(flds))
	}
	return newArgs
}

func (l RollbarLogger) print(msg string, args []interface{}) {
	p, flds, rest := split(args)

	l.std.Println(msg)
	for _, arg := range rest {
		l.std.Printf("%+v\n", arg)
	}
	if len(flds) > 0 {
		l.std.Println(flds)
	}
	if p != nil {
		l.std.Printf("principal: %s [%s]\n", p.UserID, roles(*p))
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print(msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print(msg, args)
	l.std.Fatal(msg)
}
