package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citizenmodels "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
	"barangay/internal/documents/render"
	id "barangay/pkg/domain"
	"barangay/pkg/testutil"
)

func clearanceFields() map[string]string {
	dob := time.Date(1990, 3, 4, 0, 0, 0, 0, time.UTC)
	p := &citizenmodels.Profile{
		ID:           id.NewUserID(),
		FirstName:    "Juana",
		LastName:     "Dela Cruz",
		DateOfBirth:  &dob,
		StreetNumber: "12",
		StreetName:   "Mabini",
	}
	r := &models.Request{ID: 7, UserID: p.ID, Type: models.TypeBarangayClearance, Purpose: "Employment"}
	return render.FieldsFor(p, r, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
}

func TestRenderAsFormats(t *testing.T) {
	tpl := render.DefaultTemplate(models.TypeBarangayClearance)
	data := clearanceFields()

	html, err := renderAs(tpl, data, "html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Dela Cruz")

	pdf, err := renderAs(tpl, data, "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	docx, err := renderAs(tpl, data, "docx")
	require.NoError(t, err)
	require.NoError(t, render.Validate(docx))

	_, err = renderAs(tpl, data, "odt")
	assert.Error(t, err)
}

func TestRenderCommandWritesFile(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "clearance.docx")
	dataPath := filepath.Join(dir, "fields.json")
	outPath := filepath.Join(dir, "out.pdf")
	require.NoError(t, os.WriteFile(tplPath, render.DefaultTemplate(models.TypeBarangayClearance), 0o644))
	require.NoError(t, os.WriteFile(dataPath, []byte(testutil.MustMarshal(t, clearanceFields())), 0o644))

	cmd := rootCmd()
	cmd.SetArgs([]string{"render", "--template", tplPath, "--data", dataPath, "--out", outPath})
	cmd.SetErr(&bytes.Buffer{})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}
