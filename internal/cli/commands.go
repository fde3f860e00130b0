package cli

import (
	"context"
	"fmt"

	"github.com/mplewis/ssmkv"
)

// InitParam creates a parameter holding an empty set, or an empty JSON object with --is-json, unless it exists.
func InitParam(env Env, args []string) int {
	c := newCommand("init-param", `initialises a parameter as "[]" (or "{}" with --is-json) if not found`, env)
	param := c.fs.String("param", "", "parameter name")
	isJSON := c.fs.Bool("is-json", false, "whether the parameter is a JSON object")
	return c.run(env, args,
		func() error { return required(c, "param") },
		func(ctx context.Context, store *ssmkv.Store) error {
			_, err := store.Init(ctx, *param, kindOf(*isJSON))
			return err
		})
}

// UpdateSet adds an element to or removes it from a set parameter.
func UpdateSet(env Env, args []string) int {
	c := newCommand("update-set", "updates a parameter that stores a set", env)
	param := c.fs.String("param", "", "parameter name")
	elem := c.fs.String("elem", "", "element to add or remove")
	action := c.fs.String("action", "", "add or remove")
	return c.run(env, args,
		func() error {
			if err := required(c, "param", "elem", "action"); err != nil {
				return err
			}
			_, err := ssmkv.ParseAction(*action)
			return err
		},
		func(ctx context.Context, store *ssmkv.Store) error {
			return store.UpdateSet(ctx, *param, *elem, ssmkv.Action(*action))
		})
}

// UpdateJSON sets or removes a key of a parameter that stores a JSON object.
func UpdateJSON(env Env, args []string) int {
	c := newCommand("update-json", "updates a parameter that stores a JSON object", env)
	param := c.fs.String("param", "", "parameter name")
	key := c.fs.String("key", "", "key to add or remove")
	value := c.fs.String("value", "", "value to add (required with --action add)")
	action := c.fs.String("action", "", "add or remove")
	return c.run(env, args,
		func() error {
			if err := required(c, "param", "key", "action"); err != nil {
				return err
			}
			a, err := ssmkv.ParseAction(*action)
			if err != nil {
				return err
			}
			if a == ssmkv.Add {
				return required(c, "value")
			}
			return nil
		},
		func(ctx context.Context, store *ssmkv.Store) error {
			var v *string
			if c.fs.Changed("value") {
				v = value
			}
			return store.UpdateMap(ctx, *param, *key, v, ssmkv.Action(*action))
		})
}

// ShowParam prints the decoded collection: one element per line, or one key=value pair per line with --is-json.
func ShowParam(env Env, args []string) int {
	c := newCommand("show-param", "prints the collection stored in a parameter", env)
	param := c.fs.String("param", "", "parameter name")
	isJSON := c.fs.Bool("is-json", false, "whether the parameter is a JSON object")
	return c.run(env, args,
		func() error { return required(c, "param") },
		func(ctx context.Context, store *ssmkv.Store) error {
			if !*isJSON {
				members, err := store.Members(ctx, *param)
				if err != nil {
					return err
				}
				for _, m := range members.Sorted() {
					fmt.Fprintln(env.Stdout, m)
				}
				return nil
			}
			entries, err := store.Entries(ctx, *param)
			if err != nil {
				return err
			}
			for _, k := range entries.Keys() {
				v, _ := entries.Get(k)
				fmt.Fprintf(env.Stdout, "%s=%s\n", k, v)
			}
			return nil
		})
}
