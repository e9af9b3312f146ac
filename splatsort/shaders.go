// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package splatsort

// wgslSource is the WGSL compute shader library backing the GPU
// radix and bitonic backends. It is embedded as a Go string
// constant rather than a separate asset file, the way
// CWBudde-MayFlyCircleFit embeds its OpenCL C kernel source: one
// module, compiled once per Sorter, with entry points selected by
// name through driver.ShaderFunc.
const wgslSource = `
struct KeyBuildParams {
    count: u32,
    stride: u32,
    by_distance: u32,
    cam_pos: vec3<f32>,
    cam_fwd: vec3<f32>,
}

@group(0) @binding(0) var<uniform> kb_params: KeyBuildParams;
@group(0) @binding(1) var<storage, read> kb_splats: array<u32>;
@group(0) @binding(2) var<storage, read_write> kb_keys: array<vec2<u32>>;

fn sortable_uint(d: f32) -> u32 {
    let u = bitcast<u32>(d);
    if (u & 0x80000000u) != 0u {
        return ~u;
    }
    return u ^ 0x80000000u;
}

@compute @workgroup_size(256)
fn key_build(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if i >= kb_params.count {
        return;
    }
    let word_off = (i * kb_params.stride) / 4u;
    let px = bitcast<f32>(kb_splats[word_off + 0u]);
    let py = bitcast<f32>(kb_splats[word_off + 1u]);
    let pz = bitcast<f32>(kb_splats[word_off + 2u]);
    let rel = vec3<f32>(px, py, pz) - kb_params.cam_pos;

    var depth: f32;
    if kb_params.by_distance != 0u {
        depth = dot(rel, rel);
    } else {
        depth = dot(rel, kb_params.cam_fwd);
    }
    var bits = sortable_uint(depth);
    if depth != depth {
        bits = 0xFFFFFFFFu;
    }
    bits = ~bits;
    kb_keys[i] = vec2<u32>(bits, i);
}

struct PassParams {
    count: u32,
    byte_index: u32,
}

@group(0) @binding(0) var<uniform> hist_params: PassParams;
@group(0) @binding(1) var<storage, read_write> histogram: array<atomic<u32>, 256>;
@group(0) @binding(2) var<storage, read> hist_keys: array<vec2<u32>>;

@compute @workgroup_size(256)
fn histogram_reset(@builtin(local_invocation_index) lid: u32) {
    atomicStore(&histogram[lid], 0u);
}

@compute @workgroup_size(256)
fn histogram_accumulate(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if i >= hist_params.count {
        return;
    }
    let digit = (hist_keys[i].x >> (hist_params.byte_index * 8u)) & 0xFFu;
    atomicAdd(&histogram[digit], 1u);
}

var<workgroup> scan_tmp: array<u32, 256>;

@group(0) @binding(0) var<storage, read_write> prefix_histogram: array<u32, 256>;

@compute @workgroup_size(256)
fn prefix_sum(@builtin(local_invocation_index) lid: u32) {
    scan_tmp[lid] = prefix_histogram[lid];
    workgroupBarrier();

    var offset: u32 = 1u;
    for (var d: u32 = 256u >> 1u; d > 0u; d = d >> 1u) {
        workgroupBarrier();
        if lid < d {
            let ai = offset * (2u * lid + 1u) - 1u;
            let bi = offset * (2u * lid + 2u) - 1u;
            scan_tmp[bi] = scan_tmp[bi] + scan_tmp[ai];
        }
        offset = offset * 2u;
    }
    if lid == 0u {
        scan_tmp[255u] = 0u;
    }
    for (var d: u32 = 1u; d < 256u; d = d * 2u) {
        offset = offset >> 1u;
        workgroupBarrier();
        if lid < d {
            let ai = offset * (2u * lid + 1u) - 1u;
            let bi = offset * (2u * lid + 2u) - 1u;
            let t = scan_tmp[ai];
            scan_tmp[ai] = scan_tmp[bi];
            scan_tmp[bi] = scan_tmp[bi] + t;
        }
    }
    workgroupBarrier();
    prefix_histogram[lid] = scan_tmp[lid];
}

struct ScatterParams {
    count: u32,
    byte_index: u32,
    num_tg: u32,
}

@group(0) @binding(0) var<uniform> sc_params: ScatterParams;
@group(0) @binding(1) var<storage, read> sc_keys_in: array<vec2<u32>>;
@group(0) @binding(2) var<storage, read_write> sc_keys_out: array<vec2<u32>>;
@group(0) @binding(3) var<storage, read_write> sc_tg_counts: array<u32>;
@group(0) @binding(4) var<storage, read_write> sc_tg_offsets: array<u32>;
@group(0) @binding(5) var<storage, read> sc_base_histogram: array<u32, 256>;

var<workgroup> sc_local_hist: array<atomic<u32>, 256>;

@compute @workgroup_size(256)
fn scatter_count(@builtin(local_invocation_index) lid: u32, @builtin(workgroup_id) wgid: vec3<u32>, @builtin(global_invocation_id) gid: vec3<u32>) {
    atomicStore(&sc_local_hist[lid], 0u);
    workgroupBarrier();
    let i = gid.x;
    if i < sc_params.count {
        let digit = (sc_keys_in[i].x >> (sc_params.byte_index * 8u)) & 0xFFu;
        atomicAdd(&sc_local_hist[digit], 1u);
    }
    workgroupBarrier();
    sc_tg_counts[wgid.x * 256u + lid] = atomicLoad(&sc_local_hist[lid]);
}

@compute @workgroup_size(256)
fn scatter_offsets(@builtin(local_invocation_index) lid: u32) {
    var running: u32 = sc_base_histogram[lid];
    for (var tg: u32 = 0u; tg < sc_params.num_tg; tg = tg + 1u) {
        sc_tg_offsets[tg * 256u + lid] = running;
        running = running + sc_tg_counts[tg * 256u + lid];
    }
}

var<workgroup> sc_digit: array<u32, 256>;

@compute @workgroup_size(256)
fn scatter_write(@builtin(local_invocation_index) lid: u32, @builtin(workgroup_id) wgid: vec3<u32>, @builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    var valid = i < sc_params.count;
    var rec = vec2<u32>(0xFFFFFFFFu, 0u);
    var digit: u32 = 255u;

    if valid {
        rec = sc_keys_in[i];
        digit = (rec.x >> (sc_params.byte_index * 8u)) & 0xFFu;
        sc_digit[lid] = digit;
    }
    workgroupBarrier();
    if valid {
        var rank: u32 = 0u;
        for (var l: u32 = 0u; l < lid; l = l + 1u) {
            if sc_digit[l] == digit {
                rank = rank + 1u;
            }
        }
        sc_keys_out[sc_tg_offsets[wgid.x * 256u + digit] + rank] = rec;
    }
}

@group(0) @binding(0) var<uniform> ext_count: u32;
@group(0) @binding(1) var<storage, read> ext_keys: array<vec2<u32>>;
@group(0) @binding(2) var<storage, read_write> ext_indices: array<u32>;

@compute @workgroup_size(256)
fn extract_indices(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    if i >= ext_count {
        return;
    }
    ext_indices[i] = ext_keys[i].y;
}

struct BitonicParams {
    count: u32,
    k: u32,
    j: u32,
}

@group(0) @binding(0) var<uniform> bi_params: BitonicParams;
@group(0) @binding(1) var<storage, read_write> bi_keys: array<vec2<u32>>;

@compute @workgroup_size(256)
fn bitonic_pass(@builtin(global_invocation_id) gid: vec3<u32>) {
    let i = gid.x;
    let l = i ^ bi_params.j;
    if l <= i || l >= bi_params.count {
        return;
    }
    let ascending = (i & bi_params.k) == 0u;
    let a = bi_keys[i];
    let b = bi_keys[l];
    if (a.x > b.x) == ascending {
        bi_keys[i] = b;
        bi_keys[l] = a;
    }
}
`

// kernelNames lists every WGSL entry point a Sorter may bind a
// pipeline to. ShaderFunctionMissing construction errors name one
// of these.
var kernelNames = []string{
	"key_build",
	"histogram_reset",
	"histogram_accumulate",
	"prefix_sum",
	"scatter_count",
	"scatter_offsets",
	"scatter_write",
	"extract_indices",
	"bitonic_pass",
}
