package database

import (
	"fmt"
	"strings"

	"github.com/huandu/go-sqlbuilder"
)

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

// OnConflictUpdate appends ON CONFLICT (columns) DO UPDATE, setting every
// update column to its EXCLUDED value.
func (b *InsertBuilder) OnConflictUpdate(conflict []string, update ...string) *InsertBuilder {
	sets := make([]string, len(update))
	for i, col := range update {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	b.SQL(fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(conflict, ", "), strings.Join(sets, ", ")))
	return b
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

type DeleteBuilder struct {
	*sqlbuilder.DeleteBuilder
}

func NewDeleteBuilder() *DeleteBuilder {
	return &DeleteBuilder{sqlbuilder.PostgreSQL.NewDeleteBuilder()}
}

// Struct builds statements from a struct's db tags.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}

func (s *Struct) SelectFrom(table string) *SelectBuilder {
	return &SelectBuilder{s.Struct.SelectFrom(table)}
}

func (s *Struct) InsertInto(table string, v ...any) *InsertBuilder {
	return &InsertBuilder{s.Struct.InsertInto(table, v...)}
}
