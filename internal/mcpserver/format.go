package mcpserver

const formatURI = "databrowser://container-format"

// ContainerFormat describes the container file layout that LLM consumers
// should follow when importing containers.
const ContainerFormat = `# Container File Format

A container is a YAML file in the data directory (extension .yaml or .yml)
holding a flat list of keyed items.

## Structure

` + "```" + `yaml
items:
  - key: /0/data            # REQUIRED, absolute, unique within the file
    type: datafield         # REQUIRED, one of the types below
    value: {xres: 2, yres: 1, xreal: 1e-6, yreal: 5e-7, data: [0, 1]}
  - key: /0/data/title
    type: string
    value: Topography
` + "```" + `

## Keys

| Category | Primary key             | Id base |
|----------|-------------------------|---------|
| channel  | /N/data                 | 0       |
| graph    | /0/graph/graph/N        | 1       |
| spectra  | /sps/N                  | 0       |
| volume   | /brick/N                | 0       |
| xyz      | /xyz/N                  | 0       |
| curvemap | /lawn/N                 | 0       |

Auxiliary keys hang below a primary key, e.g. /N/data/title, /N/mask,
/N/show, /brick/N/title. Keys ending in /visible persist whether a view of
the object is open.

## Types

- string, bool, int, float: scalar values.
- datafield: xres, yres (> 0), xreal, yreal, unit_xy, unit_z, data
  (xres*yres samples or empty).
- graph: title, x_label, y_label, curves (list of {description, x, y}).
- spectra: title, points (list of {x, y, abscissa, ordinate}).
- brick: xres, yres, zres (> 0), xreal, yreal, zreal, data
  (xres*yres*zres samples or empty).
- surface: points (list of {x, y, z}).
- lawn: xres, yres, xreal, yreal, curves (list of sample lists).

## Rules

1. Every key starts with a slash; duplicates are rejected.
2. A primary key must hold its category's type (a channel key holds a datafield).
3. Unknown types make the whole file invalid; nothing is loaded.
4. File paths use forward slashes and must not exist yet when importing.
5. The /filename key is managed by the browser; do not set it.

## Importing

Use the ` + "`" + `import_container` + "`" + ` tool with an http(s) URL or a
` + "`" + `data:application/yaml;base64,...` + "`" + ` URI. The container is registered
immediately and reported by ` + "`" + `list_containers` + "`" + `.
`
