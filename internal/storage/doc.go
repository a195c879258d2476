/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the local script index.
// It keeps one embedded SQLite database (modernc.org/sqlite, WAL mode) with the tokens of every indexed script,
// the snapshot history of each script's raw text, and a search over token text.
// Token rows are derived from the snapshots and can be rebuilt with Reindex; snapshot text is zstd compressed when
// that saves space.
package storage
