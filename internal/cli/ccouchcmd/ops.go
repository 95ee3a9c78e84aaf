package ccouchcmd

import (
	"context"
	"strconv"
	"strings"

	"github.com/couchkb/couchkb/internal/admin"
	"github.com/couchkb/couchkb/internal/cli/output"
	"github.com/couchkb/couchkb/internal/secrets"
	"github.com/couchkb/couchkb/internal/ui"
)

func (a *app) listDatabases(ctx context.Context, m *admin.Manager) error {
	dbs, err := m.ListDatabases(ctx)
	if err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(dbs, &output.Meta{Count: len(dbs)})
	}
	tbl := ui.NewTable(2)
	tbl.SetHeader("Documents", "Database")
	tbl.AlignRight(0)
	for _, db := range dbs {
		tbl.AddRow(strconv.FormatInt(db.DocCount, 10), db.Name)
	}
	a.out.Printf("%s", tbl.String())
	return nil
}

func (a *app) listUsers(ctx context.Context, m *admin.Manager) error {
	users, err := m.ListUsers(ctx)
	if err != nil {
		return err
	}
	if a.out.JSON {
		if users == nil {
			users = []admin.User{}
		}
		return a.out.Success(users, &output.Meta{Count: len(users)})
	}
	for _, u := range users {
		a.out.Println(ui.ID(u.ID))
		a.out.Printf("  username: %s\n", u.Name)
		a.out.Printf("  roles: %s\n", strings.Join(u.Roles, ","))
	}
	return nil
}

func (a *app) security(ctx context.Context, m *admin.Manager) error {
	sec, err := m.DatabaseSecurity(ctx, a.opts.database)
	if err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(sec, nil)
	}
	a.out.Println(ui.Header(sec.Database))
	a.out.Printf("Admin party: %t\n", sec.AdminParty)
	tbl := ui.NewTable(3)
	tbl.SetHeader("Section", "Names", "Roles")
	tbl.AddRow("admins", strings.Join(sec.Security.Admins.Names, ","), strings.Join(sec.Security.Admins.Roles, ","))
	tbl.AddRow("members", strings.Join(sec.Security.Members.Names, ","), strings.Join(sec.Security.Members.Roles, ","))
	a.out.Printf("%s", tbl.String())
	return nil
}

func (a *app) designs(ctx context.Context, m *admin.Manager) error {
	designs, err := m.Designs(ctx, a.opts.database)
	if err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(designs, &output.Meta{Count: len(designs)})
	}
	for _, d := range designs {
		for _, name := range d.FieldNames() {
			a.out.Println(name)
			a.out.Printf("  %s\n", d.Fields[name])
		}
	}
	return nil
}

func (a *app) compact(ctx context.Context, m *admin.Manager) error {
	if err := m.Compact(ctx, a.opts.database); err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(map[string]string{"compacting": a.opts.database}, nil)
	}
	a.out.Println(ui.Successf("Compaction of %s started", a.opts.database))
	return nil
}

func (a *app) addUser(ctx context.Context, m *admin.Manager) error {
	roles := admin.ParseRoles(a.opts.roles)
	err := m.AddUser(ctx, admin.NewUser{
		Username: a.opts.username,
		Password: a.opts.password,
		Roles:    roles,
	})
	if err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(map[string]interface{}{"user": a.opts.username, "roles": roles}, nil)
	}
	a.out.Println(ui.Successf("Added user %s", a.opts.username))
	return nil
}

func (a *app) storeSecret(store *secrets.Store) error {
	err := store.Put(a.opts.adminKey, secrets.Credentials{
		Username: a.opts.username,
		Password: a.opts.password,
		URL:      a.opts.url,
	})
	if err != nil {
		return err
	}
	if err := store.Save(); err != nil {
		return err
	}
	if a.out.JSON {
		return a.out.Success(map[string]string{"key": a.opts.adminKey, "path": store.Path()}, nil)
	}
	a.out.Println(ui.Successf("Stored %s in %s", a.opts.adminKey, store.Path()))
	return nil
}
