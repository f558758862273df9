package mcpserver

// TabFormatContract describes the YAML tab document accepted by the
// analyze_tab, ingest_tab and import_tab tools.
const TabFormatContract = `# lickdex Tab Format

A tab document is a YAML file (.yaml, .yml or .tab) describing one song.

## Structure

` + "```" + `yaml
title: Song title          # optional, used for search
artist: Artist name        # optional
album: Album name          # optional
year: "1969"               # optional, string
tempo: 120                 # optional, beats per minute
tracks:                    # REQUIRED, at least one
  - name: Lead guitar
    instrument: 27         # optional GM program (0-based); guitars are 24-30
    strings: [E4, B3, G3, D3, A2, E2]   # REQUIRED, highest string first
    measures:
      - voices:            # only the first voice is analyzed
          - - {duration: 4, notes: [{string: 2, fret: 1}, {string: 3, fret: 0}]}
            - {duration: 8}                        # no notes: a rest
            - {duration: 8, notes: [{string: 1, fret: 3}]}
` + "```" + `

## Rules

1. **Strings** are listed highest-pitched first, as printed on a tab. String
   number 1 is the first entry. Octave digits are accepted and ignored.
2. **duration** is the note value denominator: 1 whole, 2 half, 4 quarter,
   8 eighth, 16 sixteenth. It must be positive.
3. **fret** is 0 (open) or higher. A note on a string the tuning lacks is an
   error.
4. Only tracks with exactly six strings and a guitar program (or no program)
   are analyzed.
5. Unknown keys are rejected.

## Statistics

- A measure's match is the number of times it occurs divided by the number of
  measures analyzed.
- A pitch's match is its share of the track's weighted duration: a beat with
  k notes and duration d weighs k/d, each note 1/d; a rest weighs 1/d.
- Identical beats and measures share one ID across all songs, whatever the
  fingering.
`
