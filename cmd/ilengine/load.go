package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/clrfirmata/ilengine/internal/engine"
	"github.com/clrfirmata/ilengine/internal/method"
	"github.com/clrfirmata/ilengine/internal/nativehook"
	"github.com/clrfirmata/ilengine/internal/slot"
	"github.com/clrfirmata/ilengine/internal/token"
)

// bundle is a JSON test-fixture format populating the class/method/
// constant tables directly (SPEC_FULL.md §4.13: "deserializes a JSON
// descriptor bundle test fixture and populates C4-C6 directly, bypassing
// wire framing"). Unlike the wire protocol's split, streamed requests, a
// bundle names every descriptor's full shape in one JSON document — this
// command has direct Go-level access to the tables a real wire peer would
// only reach through internal/loader's framed request/response dance.
type bundle struct {
	Classes            []classJSON  `json:"classes"`
	Methods            []methodJSON `json:"methods"`
	Constants          []constJSON  `json:"constants"`
	ArrayToken         uint32       `json:"arrayToken"`
	ConstantMemorySize uint32       `json:"constantMemorySize"`
	StartupToken       uint32       `json:"startupToken"`
}

type declJSON struct {
	Name string `json:"name"`
	Kind uint8  `json:"kind"`
	Size int    `json:"size"`
}

type classJSON struct {
	Token       uint32     `json:"token"`
	Parent      uint32     `json:"parent"`
	StaticSize  int        `json:"staticSize"`
	IsValueType bool       `json:"isValueType"`
	Fields      []declJSON `json:"fields"`
	Interfaces  []uint32   `json:"interfaces"`
}

type clauseJSON struct {
	Type          uint8  `json:"type"`
	TryOffset     int    `json:"tryOffset"`
	TryLength     int    `json:"tryLength"`
	HandlerOffset int    `json:"handlerOffset"`
	HandlerLength int    `json:"handlerLength"`
	FilterToken   uint32 `json:"filterToken"`
	TargetClass   uint32 `json:"targetClass"`
}

type methodJSON struct {
	Token             uint32            `json:"token"`
	Owner             uint32            `json:"owner"`
	Flags             uint16            `json:"flags"`
	MaxStack          int               `json:"maxStack"`
	NumArgs           int               `json:"numArgs"`
	Args              []declJSON        `json:"args"`
	Locals            []declJSON        `json:"locals"`
	Code              string            `json:"code"` // base64, mutually exclusive with Native
	Native            bool              `json:"native"`
	NativeID          uint16            `json:"nativeId"`
	Clauses           []clauseJSON      `json:"clauses"`
	DeclarationTokens []uint32          `json:"declarationTokens"`
	TokenRemap        map[string]uint32 `json:"tokenRemap"` // call-site token (decimal string) -> resolved token
}

type constJSON struct {
	Token uint32 `json:"token"`
	Data  string `json:"data"` // base64
}

func newLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <bundle.json>",
		Short: "Populate the class/method/constant tables from a JSON descriptor bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			e, err := engine.New(cfg, log, nativehook.NullBoard{})
			if err != nil {
				return err
			}
			if err := e.Boot(); err != nil {
				return err
			}

			b, err := readBundle(args[0])
			if err != nil {
				return err
			}
			if err := applyBundle(e, b); err != nil {
				return err
			}

			fmt.Printf("loaded %d classes, %d methods, %d constants\n", len(b.Classes), len(b.Methods), len(b.Constants))
			return nil
		},
	}
	return cmd
}

func readBundle(path string) (bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return bundle{}, fmt.Errorf("ilengine: read bundle: %w", err)
	}
	var b bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return bundle{}, fmt.Errorf("ilengine: parse bundle: %w", err)
	}
	return b, nil
}

func applyBundle(e *engine.Engine, b bundle) error {
	e.Interp.Special.ArrayToken = token.Token(b.ArrayToken)

	for _, cj := range b.Classes {
		cls := e.Classes.Declare(token.Token(cj.Token))
		cls.ParentToken = token.Token(cj.Parent)
		cls.StaticSize = cj.StaticSize
		cls.IsValueType = cj.IsValueType
		for _, f := range cj.Fields {
			cls.AddField(f.Name, slot.Decl(slot.Kind(f.Kind), f.Size))
		}
		for _, iface := range cj.Interfaces {
			cls.Interfaces[token.Token(iface)] = struct{}{}
		}
	}

	for _, mj := range b.Methods {
		tok := token.Token(mj.Token)
		d := e.Methods.Declare(tok)
		d.OwnerClass = token.Token(mj.Owner)
		d.Flags = method.Flags(mj.Flags)
		d.MaxStack = mj.MaxStack
		d.NumArgs = mj.NumArgs

		for i, a := range mj.Args {
			name := a.Name
			if name == "" {
				name = fmt.Sprintf("arg%d", i)
			}
			d.Args = append(d.Args, method.ArgDescriptor{Name: name, Decl: slot.Decl(slot.Kind(a.Kind), a.Size)})
		}
		for i, l := range mj.Locals {
			name := l.Name
			if name == "" {
				name = fmt.Sprintf("local%d", i)
			}
			d.Locals = append(d.Locals, method.LocalDescriptor{Name: name, Decl: slot.Decl(slot.Kind(l.Kind), l.Size)})
		}

		if mj.Native {
			d.IsNative = true
			d.NativeMethod = method.NativeMethodID(mj.NativeID)
		} else if mj.Code != "" {
			code, err := base64.StdEncoding.DecodeString(mj.Code)
			if err != nil {
				return fmt.Errorf("ilengine: method %#x: decode code: %w", mj.Token, err)
			}
			d.Code = code
		}

		for _, c := range mj.Clauses {
			d.Clauses = append(d.Clauses, method.ExceptionClause{
				MethodToken:   tok,
				Type:          method.ClauseType(c.Type),
				TryOffset:     c.TryOffset,
				TryLength:     c.TryLength,
				HandlerOffset: c.HandlerOffset,
				HandlerLength: c.HandlerLength,
				FilterToken:   token.Token(c.FilterToken),
				TargetClass:   token.Token(c.TargetClass),
			})
		}
		d.SortClauses()

		for _, dt := range mj.DeclarationTokens {
			d.DeclarationTokens[token.Token(dt)] = struct{}{}
		}
		for callSite, resolved := range mj.TokenRemap {
			var callTok uint32
			if _, err := fmt.Sscanf(callSite, "%d", &callTok); err != nil {
				return fmt.Errorf("ilengine: method %#x: bad tokenRemap key %q: %w", mj.Token, callSite, err)
			}
			d.TokenRemap[token.Token(callTok)] = token.Token(resolved)
		}

		if d.OwnerClass != token.Invalid {
			if cls, ok := e.Classes.GetByKey(d.OwnerClass); ok {
				cls.Methods = append(cls.Methods, d)
			}
		}
	}

	for _, cj := range b.Constants {
		data, err := base64.StdEncoding.DecodeString(cj.Data)
		if err != nil {
			return fmt.Errorf("ilengine: constant %#x: decode data: %w", cj.Token, err)
		}
		e.Consts.Put(token.Token(cj.Token), 0, data)
	}

	return nil
}
