package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-catalog/library"
)

func TestImportBooks(t *testing.T) {
	manager := library.NewLibraryManager(library.DefaultPolicy())
	input := `id,title,author,copies
1,Dune,Frank Herbert,3
2,"Neuromancer, Special",William Gibson
x,Bad,Row,1
3,Short
1,Dune Again,Frank Herbert,1
4,Snow Crash,Neal Stephenson,abc
5,  Hyperion , Dan Simmons ,2
`
	ok, bad, err := importBooks(manager, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, ok)
	assert.Equal(t, 4, bad)

	books := manager.ListBooks()
	require.Len(t, books, 3)
	assert.Equal(t, 3, books[0].TotalCopies)
	assert.Equal(t, "Neuromancer, Special", books[1].Title)
	assert.Equal(t, 1, books[1].TotalCopies)
	assert.Equal(t, "Hyperion", books[2].Title)
	assert.Equal(t, "Dan Simmons", books[2].Author)
}

func TestImportBooksWithoutHeader(t *testing.T) {
	manager := library.NewLibraryManager(library.DefaultPolicy())
	ok, bad, err := importBooks(manager, strings.NewReader("7,Solaris,Stanislaw Lem,2\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, bad)

	book, err := manager.SearchBook(7)
	require.NoError(t, err)
	assert.Equal(t, 2, book.AvailableCopies)
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", truncateString("abc", 5))
	assert.Equal(t, "ab...", truncateString("abcdefgh", 5))
	assert.Equal(t, "ab", truncateString("abcdefgh", 2))
	assert.Equal(t, "日本語...", truncateString("日本語の本のタイトル", 6))
	assert.Equal(t, "日本", truncateString("日本語の本", 2))
}
