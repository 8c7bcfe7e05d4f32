// Boardprov
// Copyright (c) 2026 The Boardprov Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Boardprov.
//
// Boardprov is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Boardprov is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Boardprov.  If not, see <http://www.gnu.org/licenses/>.

package helpers

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"

	"github.com/boardprov/boardprov/pkg/config"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogging(t *testing.T) {
	dir := t.TempDir()

	var extra bytes.Buffer
	require.NoError(t, InitLogging(dir, []io.Writer{&extra}))

	log.Info().Str("stage", "tfcard").Msg("test entry")

	assert.FileExists(t, filepath.Join(dir, config.LogFile))
	assert.Contains(t, extra.String(), "test entry")
}
