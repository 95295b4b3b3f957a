package catalog

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/pttsw/wiki-dnd-parser/internal/corpus"
	"github.com/pttsw/wiki-dnd-parser/internal/domain"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/audit"
	"github.com/pttsw/wiki-dnd-parser/internal/reconcile/i18n"
)

const (
	fieldBaseItem = "baseItem"
	fieldItems    = "items"
	blockWeapon   = "weapon"
	blockArmor    = "armor"
)

// DefaultWeaponKeys are the fields grouped into the weapon block.
var DefaultWeaponKeys = []string{
	"weaponCategory", "dmg1", "dmg2", "dmgType", "range", "reload", "ammoType",
	"property", "mastery", "packContents",
	"firearm", "sword", "rapier", "crossbow", "axe", "staff", "club", "spear",
	"dagger", "hammer", "bow", "mace", "polearm", "lance",
}

// DefaultArmorKeys are the fields grouped into the armor block.
var DefaultArmorKeys = []string{"ac", "strength", "stealth", "dexterityMax"}

var weaponSubTypes = []string{
	"sword", "crossbow", "axe", "staff", "club", "spear", "dagger", "hammer",
	"bow", "mace", "firearm", "polearm", "lance", "rapier", "tattoo",
}

var ammoSubTypes = []string{"arrow", "bolt", "cellEnergy", "bulletFirearm", "bulletSling"}

// bonusFields maps record fields to keys of the bonus attribute.
var bonusFields = [][2]string{
	{"bonusWeapon", "weapon"},
	{"bonusWeaponAttack", "weaponAttack"},
	{"bonusWeaponDamage", "weaponDamage"},
	{"bonusSpellAttack", "spellAttack"},
	{"bonusSpellSaveDc", "spellSaveDc"},
	{"bonusAc", "ac"},
	{"bonusSavingThrow", "savingThrow"},
	{"bonusAbilityCheck", "abilityCheck"},
	{"bonusProficiencyBonus", "proficiencyBonus"},
}

// LoadItemFluff indexes fluff-items.json for the item kinds.
func (c *Catalog) LoadItemFluff(p corpus.Pair) {
	for lang, doc := range map[domain.Lang]corpus.Document{domain.Primary: p.Primary, domain.Secondary: p.Secondary} {
		for _, err := range c.itemFluff.Add(lang, doc.Records("itemFluff")) {
			c.anomalies.Record(audit.KindStructural, "itemFluff", "", err.Error())
		}
	}
}

func (c *Catalog) weaponKeys() []string {
	if len(c.opts.WeaponKeys) > 0 {
		return c.opts.WeaponKeys
	}
	return DefaultWeaponKeys
}

func (c *Catalog) armorKeys() []string {
	if len(c.opts.ArmorKeys) > 0 {
		return c.opts.ArmorKeys
	}
	return DefaultArmorKeys
}

func (c *Catalog) blockKeys() []string {
	return append(slices.Clone(c.weaponKeys()), c.armorKeys()...)
}

// BaseItems merges the baseitem list of items-base.json and keeps it as the
// catalog for item lookups and variant expansion.
func (c *Catalog) BaseItems(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindBaseItem,
		dataType: DataTypeItem,
		key:      domain.CanonicalKey,
		title:    nameTitle,
		skipKeys: c.blockKeys(),
		extend: func(rec *domain.MergedRecord, e entry, ks i18n.KeySets) {
			c.itemExtras(rec, e.Primary, e.Secondary, ks)
			rec.Attributes["isBaseItem"] = true
		},
	}
	col, m, err := c.collect(ctx, spec, p.Primary.Records("baseitem"), p.Secondary.Records("baseitem"))
	if err != nil {
		return col, err
	}
	c.baseItems = m.entries
	return col, nil
}

// Items merges items.json, items and item groups together.
func (c *Catalog) Items(ctx context.Context, p corpus.Pair) (Collection, error) {
	spec := kindSpec{
		kind:     KindItem,
		dataType: DataTypeItem,
		key:      domain.CanonicalKey,
		title:    nameTitle,
		skipKeys: append(c.blockKeys(), fieldItems),
	}
	spec.extend = func(rec *domain.MergedRecord, e entry, ks i18n.KeySets) {
		c.itemExtras(rec, e.Primary, e.Secondary, ks)
		rec.Attributes["isBaseItem"] = false
		if ref := e.Primary.String(fieldBaseItem); ref != "" {
			rec.BaseItem = ref
			if key, ok := c.lookupBaseItem(ref); ok {
				rec.BaseItem = key
			} else {
				c.anomalies.Recordf(audit.KindUnresolvedReference, spec.kind, e.Key, "base item %s not found", ref)
			}
		}
		rec.Items = groupItems(e.Primary, e.Secondary)
	}
	primary := append(p.Primary.Records("item"), p.Primary.Records("itemGroup")...)
	secondary := append(p.Secondary.Records("item"), p.Secondary.Records("itemGroup")...)
	col, _, err := c.collect(ctx, spec, primary, secondary)
	return col, err
}

// groupItems returns the members of an item group, preferring the
// localized list.
func groupItems(primary, secondary domain.Record) []any {
	list, ok := primary[fieldItems].([]any)
	if !ok {
		return nil
	}
	if sec, ok := secondary[fieldItems].([]any); ok {
		return sec
	}
	return list
}

// lookupBaseItem resolves a "name|source" or bare name reference against
// the base item catalog, ignoring case.
func (c *Catalog) lookupBaseItem(ref string) (string, bool) {
	name, src, hasSource := strings.Cut(ref, "|")
	name = strings.TrimSpace(name)
	src, _, _ = strings.Cut(strings.TrimSpace(src), "|")
	for _, b := range c.baseItems {
		if !strings.EqualFold(b.Primary.Name(), name) {
			continue
		}
		if hasSource && !strings.EqualFold(b.Primary.Source(), src) {
			continue
		}
		return b.Key, true
	}
	return "", false
}

// itemExtras adds blocks, fluff and typed attributes shared by every item
// kind.
func (c *Catalog) itemExtras(rec *domain.MergedRecord, primary, secondary domain.Record, ks i18n.KeySets) {
	c.addBlocks(rec, primary, secondary, ks)
	rec.Full = c.itemFluff.Full(rec.ID)
	rec.Attributes = itemAttributes(primary)
}

func (c *Catalog) addBlocks(rec *domain.MergedRecord, primary, secondary domain.Record, ks i18n.KeySets) {
	for name, keys := range map[string][]string{blockWeapon: c.weaponKeys(), blockArmor: c.armorKeys()} {
		b := i18n.GroupedBlock(primary, secondary, keys, ks, c.opts.EmptyValue)
		if b.Empty() {
			continue
		}
		if rec.Blocks == nil {
			rec.Blocks = make(map[string]domain.Block)
		}
		rec.Blocks[name] = b
	}
}

func itemAttributes(r domain.Record) map[string]any {
	typ, subTypes := itemType(r)
	attrs := map[string]any{"itemType": typ}
	if len(subTypes) > 0 {
		attrs["subTypes"] = subTypes
	}
	if stats := weaponStats(r); stats != nil {
		attrs["weaponStats"] = stats
	}
	if r.Bool("armor") {
		dexMax, has := r["dexterityMax"]
		attrs["armor"] = map[string]any{
			"ac":           r["ac"],
			"maxDexterity": has && dexMax == nil,
		}
	}
	if domain.Truthy(r["charges"]) {
		attrs["charge"] = map[string]any{
			"max":            r["charges"],
			"rechargeAt":     r["recharge"],
			"rechargeAmount": r["rechargeAmount"],
		}
	}
	bonus := map[string]any{}
	for _, f := range bonusFields {
		if v, ok := number(r[f[0]]); ok && v != 0 {
			bonus[f[1]] = v
		}
	}
	if len(bonus) > 0 {
		attrs["bonus"] = bonus
	}
	return attrs
}

// itemType classifies an item for wiki categories.
func itemType(r domain.Record) (string, []string) {
	pick := func(keys []string) []string {
		var out []string
		for _, k := range keys {
			if r.Bool(k) {
				out = append(out, k)
			}
		}
		return out
	}
	switch {
	case r.Bool("weapon"):
		return "weapon", pick(weaponSubTypes)
	case domain.Truthy(r["ammoType"]):
		return "ammo", pick(ammoSubTypes)
	case r.Bool("armor"):
		return "armor", nil
	case r.Bool("poison"):
		var types []string
		if list, ok := r["poisonTypes"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					types = append(types, s)
				}
			}
		}
		return "poison", types
	case r.Bool("net"):
		return "net", nil
	default:
		return "other", nil
	}
}

// weaponStats derives the damage list and numeric range of a weapon.
func weaponStats(r domain.Record) map[string]any {
	var dmgs []any
	for _, k := range []string{"dmg1", "dmg2"} {
		if v, ok := r[k]; ok && v != nil {
			dmgs = append(dmgs, v)
		}
	}
	stats := map[string]any{}
	if len(dmgs) > 0 {
		stats["dmgs"] = dmgs
	}
	if normal, long, ok := strings.Cut(r.String("range"), "/"); ok {
		lo, errLo := strconv.Atoi(strings.TrimSpace(normal))
		hi, errHi := strconv.Atoi(strings.TrimSpace(long))
		if errLo == nil && errHi == nil {
			stats["range"] = map[string]any{"min": lo, "max": hi}
		}
	}
	if len(stats) == 0 {
		return nil
	}
	return stats
}

// number reads a JSON number or a signed numeric string such as "+1".
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
