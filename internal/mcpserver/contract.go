package mcpserver

// RecordFormatContract describes the metadata document written for every
// generated item.
const RecordFormatContract = `# Brewmint Record Format

Every generated item is stored as one JSON document in the metadata
directory, named ` + "`" + `<zero padded item id>_<name>.json` + "`" + ` and indented with two
spaces. The rendered image has the same stem with a ` + "`" + `.png` + "`" + ` extension.

## Structure

` + "```" + `json
{
  "attributes": [
    { "trait_type": "type", "value": "lager" },
    { "trait_type": "label", "value": "gold" }
  ],
  "description": "Superb gold",
  "image": "bafkrei...",
  "name": "Hazy Otter gold",
  "itemId": 3
}
` + "```" + `

## Rules

1. **Field order** is attributes, description, image, name, itemId.
2. **trait_type** is the trait directory name without its ` + "`" + `NN-` + "`" + ` ordinal prefix.
3. **value** is the trait file name without its extension.
4. **image** is empty until the rendered image has been uploaded, then holds
   its content identifier.
5. **itemId** is the id used for every chain call of the item.
6. **Content identifiers** are CIDv1 with a sha2-256 multihash. JSON content
   is hashed in canonical form (sorted keys, compact) with the json codec;
   anything else is hashed as raw bytes. Use the ` + "`" + `compute_cid` + "`" + ` tool.
`
